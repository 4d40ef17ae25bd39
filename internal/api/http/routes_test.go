package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/regional-forecast/internal/location"
	"github.com/i474232898/regional-forecast/internal/weather"
)

const twoSlotForecast = `{"cod":"200","message":0,"cnt":2,"list":[
{"dt":1700000000,"main":{"temp":15.2,"feels_like":14.1,"temp_min":13,"temp_max":15.2,"pressure":1016,"sea_level":1016,"grnd_level":1012,"humidity":60,"temp_kf":0},
 "weather":[{"id":800,"main":"Clear","description":"快晴","icon":"01d"}],"clouds":{"all":0},"wind":{"speed":3.1,"deg":320},
 "visibility":10000,"pop":0,"sys":{"pod":"d"},"dt_txt":"2023-11-14 22:13:20"},
{"dt":1700010800,"main":{"temp":17.5,"feels_like":17,"temp_min":17,"temp_max":17.5,"pressure":1015,"sea_level":1015,"grnd_level":1011,"humidity":70,"temp_kf":0},
 "weather":[{"id":500,"main":"Rain","description":"小雨","icon":"10d"}],"clouds":{"all":90},"wind":{"speed":4.2,"deg":200,"gust":7.3},
 "visibility":9000,"pop":0.6,"rain":{"3h":0.8},"sys":{"pod":"d"},"dt_txt":"2023-11-15 01:13:20"}]}`

type fakeClient struct {
	release chan struct{}
	err     error
	cities  []string
	coords  [][2]float64
}

func (f *fakeClient) FetchByName(_ context.Context, city string) (*weather.Forecast, error) {
	f.cities = append(f.cities, city)
	return f.respond()
}

func (f *fakeClient) FetchByCoordinate(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	f.coords = append(f.coords, [2]float64{lat, lon})
	return f.respond()
}

func (f *fakeClient) respond() (*weather.Forecast, error) {
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	var fc weather.Forecast
	if err := json.Unmarshal([]byte(twoSlotForecast), &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func newTestApp(t *testing.T, client weather.ForecastClient, locator Locator) (*fiber.App, *weather.RefreshController) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := weather.NewRefreshController(client, nil, logger)

	app := fiber.New()
	RegisterRoutes(app, ctrl, locator)
	return app, ctrl
}

func do(t *testing.T, app *fiber.App, method, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestListRegions(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{}, Locator{})

	var body struct {
		Regions []regionView `json:"regions"`
	}
	require.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/v1/regions", &body))

	require.Len(t, body.Regions, 4)
	cities := make([]string, 0, 4)
	for _, r := range body.Regions {
		assert.Equal(t, "named", r.Kind)
		cities = append(cities, r.City)
	}
	assert.Equal(t, []string{"Tokyo", "Hyogo", "Oita", "Hokkaido"}, cities)
	assert.Equal(t, "東京", body.Regions[0].DisplayName)
	assert.Equal(t, "region_tokyo", body.Regions[0].LabelKey)
}

func TestInitialState(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{}, Locator{})

	var st stateView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/v1/state", &st))
	assert.Equal(t, "ready", st.Status)
	assert.Equal(t, "Tokyo", st.Region.City)
	assert.False(t, st.HasForecast)
	assert.Empty(t, st.LastErrorKind)

	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodGet, "/api/v1/forecast", nil))
}

func TestSelectRegion(t *testing.T) {
	app, ctrl := newTestApp(t, &fakeClient{}, Locator{})

	var st stateView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/api/v1/region?city=Oita", &st))
	assert.Equal(t, "Oita", st.Region.City)
	assert.Equal(t, weather.Oita, ctrl.SelectedRegion())

	require.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/api/v1/region?lat=43.06&lon=141.35", &st))
	assert.Equal(t, "location", st.Region.Kind)
	assert.Equal(t, "region_location", st.Region.LabelKey)
	require.NotNil(t, st.Region.Latitude)
	assert.Equal(t, 43.06, *st.Region.Latitude)
}

func TestSelectRegionRejectsBadQueries(t *testing.T) {
	app, ctrl := newTestApp(t, &fakeClient{}, Locator{})

	for _, q := range []string{
		"",
		"?city=Osaka",
		"?city=Tokyo&lat=1&lon=2",
		"?lat=35",
		"?lat=north&lon=2",
		"?lat=95&lon=2",
		"?lat=35&lon=200",
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPut, "/api/v1/region"+q, nil), q)
	}
	assert.Equal(t, weather.Tokyo, ctrl.SelectedRegion())
}

func TestRefreshAndForecast(t *testing.T) {
	client := &fakeClient{}
	app, _ := newTestApp(t, client, Locator{})

	var st stateView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPost, "/api/v1/refresh?wait=true", &st))
	assert.Equal(t, "success", st.Status)
	assert.True(t, st.HasForecast)
	assert.Equal(t, []string{"Tokyo"}, client.cities)

	var utc forecastView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/v1/forecast", &utc))
	assert.Equal(t, 2, utc.Count)
	require.Len(t, utc.Days, 2)
	assert.Equal(t, "2023-11-14", utc.Days[0].Date)
	assert.Equal(t, "22:13", utc.Days[0].Slots[0].Time)

	var jst forecastView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/v1/forecast?tz=Asia/Tokyo", &jst))
	require.Len(t, jst.Days, 1)
	assert.Equal(t, "2023-11-15", jst.Days[0].Date)
	require.Len(t, jst.Days[0].Slots, 2)

	rainy := jst.Days[0].Slots[1]
	assert.Equal(t, weather.ConditionRain, rainy.Condition)
	require.NotNil(t, rainy.RainMM)
	assert.Equal(t, 0.8, *rainy.RainMM)
	assert.Equal(t, "2023-11-15 01:13:20", rainy.DtTxt)
	assert.Contains(t, rainy.Weather[0].IconURL, "10d")

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodGet, "/api/v1/forecast?tz=Mars/Olympus", nil))
}

func TestRefreshConflictWhileLoading(t *testing.T) {
	client := &fakeClient{release: make(chan struct{})}
	app, ctrl := newTestApp(t, client, Locator{})

	var st stateView
	require.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/refresh", &st))
	assert.Equal(t, "loading", st.Status)
	assert.Equal(t, "loading forecast", st.Message)

	assert.Equal(t, http.StatusConflict, do(t, app, http.MethodPost, "/api/v1/refresh", nil))

	close(client.release)
	require.Eventually(t, func() bool {
		return ctrl.Status() == weather.StatusSuccess
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshErrorReportsKind(t *testing.T) {
	client := &fakeClient{err: &weather.APIError{StatusCode: 401, Message: "Invalid API key"}}
	app, _ := newTestApp(t, client, Locator{})

	var st stateView
	require.Equal(t, http.StatusOK, do(t, app, http.MethodPost, "/api/v1/refresh?wait=true", &st))
	assert.Equal(t, "error", st.Status)
	assert.Equal(t, string(weather.ErrorKindAPI), st.LastErrorKind)
	assert.False(t, st.HasForecast)
}

type stubProvider struct {
	coord location.Coordinate
	err   error
}

func (p stubProvider) LastKnownLocation(context.Context) (location.Coordinate, bool, error) {
	if p.err != nil {
		return location.Coordinate{}, false, p.err
	}
	return p.coord, true, nil
}

func TestSelectCurrentLocation(t *testing.T) {
	provider := stubProvider{coord: location.Coordinate{Latitude: 34.69, Longitude: 135.19}}

	t.Run("permission missing", func(t *testing.T) {
		app, ctrl := newTestApp(t, &fakeClient{}, Locator{Gate: location.StaticGate(false), Provider: provider})
		assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodPost, "/api/v1/region/location", nil))
		assert.Equal(t, weather.Tokyo, ctrl.SelectedRegion())
	})

	t.Run("location unknown", func(t *testing.T) {
		app, _ := newTestApp(t, &fakeClient{}, Locator{
			Gate:     location.StaticGate(true),
			Provider: stubProvider{err: errors.New("no fix")},
		})
		assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodPost, "/api/v1/region/location", nil))
	})

	t.Run("granted", func(t *testing.T) {
		client := &fakeClient{}
		app, ctrl := newTestApp(t, client, Locator{Gate: location.StaticGate(true), Provider: provider})

		var st stateView
		require.Equal(t, http.StatusOK, do(t, app, http.MethodPost, "/api/v1/region/location", &st))
		assert.Equal(t, "location", st.Region.Kind)
		_, isGeo := ctrl.SelectedRegion().(weather.GeoRegion)
		assert.True(t, isGeo)

		require.Equal(t, http.StatusOK, do(t, app, http.MethodPost, "/api/v1/refresh?wait=true", &st))
		assert.Equal(t, "success", st.Status)
		assert.Equal(t, [][2]float64{{34.69, 135.19}}, client.coords)
		assert.Empty(t, client.cities)
	})
}

func TestSelectRegionReportsLatBeforeLon(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{}, Locator{})

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/region?lat=north&lon=east", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "lat must be a number", string(body))
	}
}
