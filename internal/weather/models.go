package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// iconURLFormat is where OpenWeatherMap serves the condition icons.
const iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

// Forecast is the decoded 5-day/3-hour forecast response. JSON field names
// follow the OpenWeatherMap wire format and are also used for the cache.
type Forecast struct {
	Cod     string          `json:"cod"`
	Message int             `json:"message"`
	Cnt     int             `json:"cnt"`
	List    []ForecastEntry `json:"list"`
}

// ForecastEntry is one 3-hour slot.
type ForecastEntry struct {
	Dt         int64         `json:"dt"`
	Main       MainReading   `json:"main"`
	Weather    []WeatherCond `json:"weather"`
	Clouds     Clouds        `json:"clouds"`
	Wind       Wind          `json:"wind"`
	Visibility int           `json:"visibility"`
	Pop        float64       `json:"pop"`
	Rain       *Rain         `json:"rain,omitempty"`
	Sys        Sys           `json:"sys"`
	DtTxt      string        `json:"dt_txt"`
}

// MainReading is the temperature block of an entry.
type MainReading struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	SeaLevel  int     `json:"sea_level"`
	GrndLevel int     `json:"grnd_level"`
	Humidity  int     `json:"humidity"`
	TempKf    float64 `json:"temp_kf"`
}

type WeatherCond struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// IconURL returns the 2x icon image for this condition.
func (w WeatherCond) IconURL() string {
	return fmt.Sprintf(iconURLFormat, w.Icon)
}

type Clouds struct {
	All int `json:"all"`
}

type Wind struct {
	Speed float64  `json:"speed"`
	Deg   int      `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Rain holds the precipitation volume in mm over the last 3 hours.
type Rain struct {
	ThreeH float64 `json:"3h"`
}

// Sys carries the period of day ("d" or "n").
type Sys struct {
	Pod string `json:"pod"`
}

// Time returns the slot timestamp in UTC.
func (e ForecastEntry) Time() time.Time {
	return time.Unix(e.Dt, 0).UTC()
}

// Condition maps the first weather condition of the slot to a Condition.
func (e ForecastEntry) Condition() Condition {
	if len(e.Weather) == 0 {
		return ConditionUnknown
	}
	switch e.Weather[0].Main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	case "Mist", "Fog", "Haze":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

// DayGroup is the set of slots falling on the same calendar date.
type DayGroup struct {
	Date    string          `json:"date"`
	Entries []ForecastEntry `json:"entries"`
}

// GroupByDate buckets entries by calendar date in loc, keeping the input
// order both across and within days. A nil loc means UTC.
func GroupByDate(entries []ForecastEntry, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.UTC
	}

	var groups []DayGroup
	index := make(map[string]int)
	for _, e := range entries {
		day := e.Time().In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}
