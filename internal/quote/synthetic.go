package quote

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/portfolio-tracker/internal/models"
)

// syntheticDays is the length of a generated series, matching the 60-day
// window requested from the real providers plus today.
const syntheticDays = 61

// SyntheticSeries generates a plausible daily closing-price series for a
// ticker, used when every provider failed and nothing is cached. The
// random walk is seeded from the ticker so repeated calls (and tests)
// produce identical data.
func SyntheticSeries(ticker string, now time.Time) []models.PricePoint {
	h := fnv.New64a()
	h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := 100 + rng.Float64()*200

	series := make([]models.PricePoint, 0, syntheticDays)
	for i := syntheticDays - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).UTC().Format("2006-01-02")

		// Daily move within roughly ±2%, floored at 1.
		change := (rng.Float64() - 0.5) * 4
		price = math.Max(price*(1+change/100), 1)

		series = append(series, models.PricePoint{
			Date:  date,
			Close: math.Round(price*100) / 100,
		})
	}

	return series
}
