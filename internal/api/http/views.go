package httpapi

import (
	"time"

	"github.com/i474232898/regional-forecast/internal/weather"
)

type regionView struct {
	Kind        string   `json:"kind"`
	Key         string   `json:"key"`
	City        string   `json:"city,omitempty"`
	LabelKey    string   `json:"labelKey"`
	DisplayName string   `json:"displayName,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func toRegionView(r weather.Region) regionView {
	v := regionView{Key: r.Key(), LabelKey: r.LabelKey()}
	switch r := r.(type) {
	case weather.NamedRegion:
		v.Kind = "named"
		v.City = r.City
		v.DisplayName = r.DisplayName
	case weather.GeoRegion:
		lat, lon := r.Latitude, r.Longitude
		v.Kind = "location"
		v.Latitude, v.Longitude = &lat, &lon
	}
	return v
}

type stateView struct {
	Version       uint64     `json:"version"`
	Status        string     `json:"status"`
	Message       string     `json:"message,omitempty"`
	Region        regionView `json:"region"`
	HasForecast   bool       `json:"hasForecast"`
	LastErrorKind string     `json:"lastErrorKind,omitempty"`
}

func toStateView(s weather.State) stateView {
	v := stateView{
		Version:     s.Version,
		Status:      string(s.Status),
		Message:     s.Status.Message(),
		Region:      toRegionView(s.Region),
		HasForecast: s.CurrentForecast() != nil,
	}
	if s.Status == weather.StatusError {
		v.LastErrorKind = string(weather.KindOf(s.LastError))
	}
	return v
}

type conditionView struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
}

type slotView struct {
	Dt        int64             `json:"dt"`
	Time      string            `json:"time"`
	Temp      float64           `json:"temp"`
	FeelsLike float64           `json:"feelsLike"`
	Humidity  int               `json:"humidity"`
	Pop       float64           `json:"pop"`
	RainMM    *float64          `json:"rainMm,omitempty"`
	WindSpeed float64           `json:"windSpeed"`
	Condition weather.Condition `json:"condition"`
	Weather   []conditionView   `json:"weather"`
	PartOfDay string            `json:"pod"`
	DtTxt     string            `json:"dtTxt"`
}

type dayView struct {
	Date  string     `json:"date"`
	Slots []slotView `json:"slots"`
}

type forecastView struct {
	Region regionView `json:"region"`
	Status string     `json:"status"`
	Count  int        `json:"cnt"`
	Days   []dayView  `json:"days"`
}

func toForecastView(s weather.State, f *weather.Forecast, loc *time.Location) forecastView {
	groups := weather.GroupByDate(f.List, loc)
	days := make([]dayView, 0, len(groups))
	for _, g := range groups {
		slots := make([]slotView, 0, len(g.Entries))
		for _, e := range g.Entries {
			slots = append(slots, toSlotView(e, loc))
		}
		days = append(days, dayView{Date: g.Date, Slots: slots})
	}

	return forecastView{
		Region: toRegionView(s.Region),
		Status: string(s.Status),
		Count:  f.Cnt,
		Days:   days,
	}
}

func toSlotView(e weather.ForecastEntry, loc *time.Location) slotView {
	conds := make([]conditionView, 0, len(e.Weather))
	for _, w := range e.Weather {
		conds = append(conds, conditionView{
			ID:          w.ID,
			Main:        w.Main,
			Description: w.Description,
			IconURL:     w.IconURL(),
		})
	}

	v := slotView{
		Dt:        e.Dt,
		Time:      e.Time().In(loc).Format("15:04"),
		Temp:      e.Main.Temp,
		FeelsLike: e.Main.FeelsLike,
		Humidity:  e.Main.Humidity,
		Pop:       e.Pop,
		WindSpeed: e.Wind.Speed,
		Condition: e.Condition(),
		Weather:   conds,
		PartOfDay: e.Sys.Pod,
		DtTxt:     e.DtTxt,
	}
	if e.Rain != nil {
		mm := e.Rain.ThreeH
		v.RainMM = &mm
	}
	return v
}
