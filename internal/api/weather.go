package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// WeatherSource reports conditions at a coordinate.
type WeatherSource interface {
	Weather(ctx context.Context, lat, lng float64) (WeatherReport, error)
}

type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection float64 `json:"windDirection"`
	Visibility    float64 `json:"visibility"`
	Condition     string  `json:"condition"`
	Pressure      float64 `json:"pressure"`
}

type HourlyForecast struct {
	Hour          int     `json:"hour"`
	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"windSpeed"`
}

type WeatherReport struct {
	Current  CurrentWeather   `json:"current"`
	Forecast []HourlyForecast `json:"forecast,omitempty"`
}

var conditions = []string{"Clear", "Cloudy", "Partly Cloudy", "Light Rain"}

// SimulatedWeather fabricates plausible conditions and a 24 hour forecast.
type SimulatedWeather struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedWeather uses rng, or a time-seeded source when nil.
func NewSimulatedWeather(rng *rand.Rand) *SimulatedWeather {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedWeather{rng: rng}
}

func (s *SimulatedWeather) Weather(_ context.Context, _, _ float64) (WeatherReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rng
	report := WeatherReport{
		Current: CurrentWeather{
			Temperature:   18 + r.Float64()*10,
			Humidity:      60 + r.Float64()*30,
			WindSpeed:     r.Float64() * 15,
			WindDirection: r.Float64() * 360,
			Visibility:    8 + r.Float64()*7,
			Condition:     conditions[r.Intn(len(conditions))],
			Pressure:      1010 + r.Float64()*20,
		},
		Forecast: make([]HourlyForecast, 24),
	}
	for i := range report.Forecast {
		report.Forecast[i] = HourlyForecast{
			Hour:          i,
			Temperature:   15 + r.Float64()*15,
			Precipitation: r.Float64() * 0.5,
			WindSpeed:     r.Float64() * 20,
		}
	}
	return report, nil
}

// DefaultOpenWeatherURL is the current-conditions endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var errWeatherUpstream = errors.New("weather upstream failed")

// OpenWeather queries OpenWeatherMap in metric units.
type OpenWeather struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewOpenWeather(apiKey string) *OpenWeather {
	return &OpenWeather{
		BaseURL: DefaultOpenWeatherURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type owmResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
	Weather    []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

func (o *OpenWeather) Weather(ctx context.Context, lat, lng float64) (WeatherReport, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("appid", o.APIKey)
	q.Set("units", "metric")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return WeatherReport{}, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return WeatherReport{}, fmt.Errorf("%w: %v", errWeatherUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return WeatherReport{}, fmt.Errorf("%w: status %d", errWeatherUpstream, resp.StatusCode)
	}
	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return WeatherReport{}, fmt.Errorf("%w: decode: %v", errWeatherUpstream, err)
	}
	cur := CurrentWeather{
		Temperature:   body.Main.Temp,
		Humidity:      body.Main.Humidity,
		WindSpeed:     body.Wind.Speed,
		WindDirection: body.Wind.Deg,
		Visibility:    body.Visibility / 1000,
		Pressure:      body.Main.Pressure,
	}
	if len(body.Weather) > 0 {
		cur.Condition = body.Weather[0].Main
	}
	return WeatherReport{Current: cur}, nil
}
