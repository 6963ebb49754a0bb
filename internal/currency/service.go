package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	rateCacheKey = "invoicer:rates:usd"
	rateCacheTTL = time.Hour
)

// Rates maps currency codes to their USD-base exchange rate.
type Rates struct {
	Base    string                     `json:"base"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Source  string                     `json:"source"`
	FetchAt time.Time                  `json:"fetched_at"`
}

// Service resolves exchange rates, preferring the live provider with a Redis
// cache and falling back to the static table when neither is available.
type Service struct {
	apiKey string
	apiURL string
	client *http.Client
	redis  *redis.Client
	logger zerolog.Logger
}

// NewService creates a rate service. redisClient may be nil, in which case
// live rates are fetched on every call. An empty apiKey disables the live
// provider entirely.
func NewService(apiKey string, redisClient *redis.Client, logger zerolog.Logger) *Service {
	return &Service{
		apiKey: apiKey,
		apiURL: "https://v6.exchangerate-api.com/v6",
		client: &http.Client{Timeout: 10 * time.Second},
		redis:  redisClient,
		logger: logger.With().Str("component", "currency").Logger(),
	}
}

// GetRates returns USD-base rates. Cached live rates are served for an hour;
// any failure along the way degrades silently to the static fallback table.
func (s *Service) GetRates(ctx context.Context) Rates {
	if cached, ok := s.cachedRates(ctx); ok {
		return cached
	}

	if s.apiKey != "" {
		live, err := s.fetchLive(ctx)
		if err == nil {
			s.storeRates(ctx, live)
			return live
		}
		s.logger.Warn().Err(err).Msg("live rate fetch failed, using fallback rates")
	}

	return Rates{
		Base:    "USD",
		Rates:   fallbackRates,
		Source:  "fallback",
		FetchAt: time.Now().UTC(),
	}
}

// Convert converts an amount between two supported currencies via the USD
// base. Converting to a currency with no known rate returns an error.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates := s.GetRates(ctx)
	fromRate, ok := rates.Rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s", from)
	}
	toRate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s", to)
	}

	usd := amount.Div(fromRate)
	return usd.Mul(toRate), nil
}

func (s *Service) cachedRates(ctx context.Context) (Rates, bool) {
	if s.redis == nil {
		return Rates{}, false
	}
	raw, err := s.redis.Get(ctx, rateCacheKey).Bytes()
	if err != nil {
		return Rates{}, false
	}
	var rates Rates
	if err := json.Unmarshal(raw, &rates); err != nil {
		return Rates{}, false
	}
	return rates, true
}

func (s *Service) storeRates(ctx context.Context, rates Rates) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(rates)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, rateCacheKey, raw, rateCacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache exchange rates")
	}
}

type liveRateResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (s *Service) fetchLive(ctx context.Context) (Rates, error) {
	url := fmt.Sprintf("%s/%s/latest/USD", s.apiURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Rates{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Rates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rates{}, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body liveRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Rates{}, err
	}
	if body.Result != "success" {
		return Rates{}, fmt.Errorf("rate provider result %q", body.Result)
	}

	rates := make(map[string]decimal.Decimal, len(currencies))
	for code := range currencies {
		if v, ok := body.ConversionRates[code]; ok {
			rates[code] = decimal.NewFromFloat(v)
		}
	}
	return Rates{
		Base:    "USD",
		Rates:   rates,
		Source:  "live",
		FetchAt: time.Now().UTC(),
	}, nil
}
