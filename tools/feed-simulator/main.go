// Command feed-simulator generates realistic radio traffic and posts it to
// the listener's frame endpoint. The traffic shape (callsigns, zones,
// condition weights, comment pools, variant mix) comes from an embedded
// scenario that can be overridden with -scenario.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/statwatch-io/statwatch/internal/adapter/api/middleware"
	"github.com/statwatch-io/statwatch/internal/domain"
)

//go:embed scenario.yaml
var defaultScenario []byte

type scenario struct {
	Groups    []string        `yaml:"groups"`
	Callsigns []string        `yaml:"callsigns"`
	ZoneMix   map[string]int  `yaml:"zone_mix"`
	Zones     map[string]zone `yaml:"zones"`
	Messages  []string        `yaml:"messages"`
	Bulletins []string        `yaml:"bulletins"`
	Alerts    []alertTemplate `yaml:"alerts"`
	Mix       map[string]int  `yaml:"mix"`
	Quirks    quirks          `yaml:"quirks"`
}

type zone struct {
	Grids    []string                  `yaml:"grids"`
	Weights  map[string]map[string]int `yaml:"weights"`
	Comments []string                  `yaml:"comments"`
}

type alertTemplate struct {
	Severity int    `yaml:"severity"`
	Title    string `yaml:"title"`
	Body     string `yaml:"body"`
}

type quirks struct {
	DupPrefixPct int `yaml:"dup_prefix_pct"`
	NoisePct     int `yaml:"noise_pct"`
	ShorthandPct int `yaml:"shorthand_pct"`
	BadClockPct  int `yaml:"bad_clock_pct"`
}

type tally struct {
	sent     int
	accepted int
	filtered int
	rejected int
	errors   int
}

func main() {
	var (
		targetURL    = flag.String("url", "http://localhost:8080/frames", "listener endpoint to post frames to")
		apiKey       = flag.String("api-key", "", "X-API-Key header value, if the listener requires one")
		perMinute    = flag.Float64("rate", 30, "frames per minute")
		duration     = flag.Duration("d", 0, "how long to run; 0 runs until interrupted")
		batchSize    = flag.Int("batch", 1, "frames per request; values above 1 switch to NDJSON")
		scenarioPath = flag.String("scenario", "", "YAML scenario file overriding the built-in one")
		seed         = flag.Int64("seed", 0, "PRNG seed; 0 derives one from the clock")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *perMinute <= 0 || *batchSize < 1 {
		logger.Error("rate must be positive and batch at least 1")
		os.Exit(1)
	}

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	gen := newGenerator(sc, rand.New(rand.NewSource(*seed)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	logger.Info("starting feed simulator",
		"url", *targetURL,
		"rate_per_min", *perMinute,
		"batch", *batchSize,
		"seed", *seed,
	)

	limiter := rate.NewLimiter(rate.Limit(*perMinute/60.0), *batchSize)
	client := &http.Client{Timeout: 5 * time.Second}

	var report tally
	for {
		if err := limiter.WaitN(ctx, *batchSize); err != nil {
			break
		}
		frames := make([]domain.RawFrame, *batchSize)
		for i := range frames {
			frames[i] = gen.frame()
		}
		if err := post(ctx, client, *targetURL, *apiKey, frames, &report); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			report.errors++
			logger.Warn("post failed", "error", err)
		}
	}

	logger.Info("simulator finished",
		"sent", report.sent,
		"accepted", report.accepted,
		"filtered", report.filtered,
		"rejected", report.rejected,
		"errors", report.errors,
	)
}

func loadScenario(path string) (*scenario, error) {
	data := defaultScenario
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario: %w", err)
		}
	}

	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if len(sc.Callsigns) == 0 || len(sc.Groups) == 0 {
		return nil, errors.New("scenario needs at least one callsign and one group")
	}
	if len(sc.Zones) == 0 || len(sc.ZoneMix) == 0 {
		return nil, errors.New("scenario needs at least one zone with a zone_mix weight")
	}
	for name := range sc.ZoneMix {
		if _, ok := sc.Zones[name]; !ok {
			return nil, fmt.Errorf("zone_mix references unknown zone %q", name)
		}
	}
	for name, z := range sc.Zones {
		if len(z.Grids) == 0 || len(z.Comments) == 0 {
			return nil, fmt.Errorf("zone %q needs grids and comments", name)
		}
	}
	if len(sc.Mix) == 0 {
		return nil, errors.New("scenario needs a traffic mix")
	}
	known := map[string]struct{}{
		string(domain.KindStatusReport):    {},
		string(domain.KindForwardedReport): {},
		string(domain.KindCompactReport8):  {},
		string(domain.KindCompactReport9):  {},
		string(domain.KindAlert):           {},
		string(domain.KindBulletin):        {},
		string(domain.KindPlainMessage):    {},
	}
	for variant := range sc.Mix {
		if _, ok := known[variant]; !ok {
			return nil, fmt.Errorf("mix references unknown variant %q", variant)
		}
	}
	if sc.Mix[string(domain.KindAlert)] > 0 && len(sc.Alerts) == 0 {
		return nil, errors.New("alert traffic requested but no alerts defined")
	}
	if sc.Mix[string(domain.KindBulletin)] > 0 && len(sc.Bulletins) == 0 {
		return nil, errors.New("bulletin traffic requested but no bulletins defined")
	}
	if sc.Mix[string(domain.KindPlainMessage)] > 0 && len(sc.Messages) == 0 {
		return nil, errors.New("message traffic requested but no messages defined")
	}
	return &sc, nil
}

func post(ctx context.Context, client *http.Client, url, apiKey string, frames []domain.RawFrame, report *tally) error {
	var body bytes.Buffer
	contentType := "application/json"
	if len(frames) == 1 {
		if err := json.NewEncoder(&body).Encode(frames[0]); err != nil {
			return err
		}
	} else {
		contentType = "application/x-ndjson"
		enc := json.NewEncoder(&body)
		for _, f := range frames {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	report.sent += len(frames)
	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Accepted int `json:"accepted"`
		Filtered int `json:"filtered"`
		Rejected int `json:"rejected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	report.accepted += result.Accepted
	report.filtered += result.Filtered
	report.rejected += result.Rejected
	return nil
}

// generator turns the scenario's pools and weights into wire-format frames.
type generator struct {
	rng *rand.Rand
	sc  *scenario
	n   int
}

func newGenerator(sc *scenario, rng *rand.Rand) *generator {
	return &generator{rng: rng, sc: sc}
}

func (g *generator) frame() domain.RawFrame {
	g.n++
	call := pick(g.rng, g.sc.Callsigns)
	group := pick(g.rng, g.sc.Groups)
	z := g.sc.Zones[pickWeighted(g.rng, g.sc.ZoneMix)]

	to := group
	var text string
	switch domain.VariantKind(pickWeighted(g.rng, g.sc.Mix)) {
	case domain.KindStatusReport:
		text = g.statrep(call, group, z, false)
	case domain.KindForwardedReport:
		text = g.statrep(call, group, z, true)
	case domain.KindCompactReport8:
		text = g.compact(call, group, z, false)
	case domain.KindCompactReport9:
		text = g.compact(call, group, z, true)
	case domain.KindAlert:
		text = g.alert(call, group)
	case domain.KindBulletin:
		text = g.bulletin(call, group)
	default:
		text, to = g.message(call, group)
	}

	text = g.applyQuirks(call, text)

	return domain.RawFrame{
		ID:            fmt.Sprintf("sim-%06d", g.n),
		Text:          text,
		From:          call,
		To:            to,
		TimestampText: g.clock(),
		Frequency:     7078000 + int64(g.rng.Intn(2500)),
		SNR:           g.rng.Intn(35) - 24,
		Source:        domain.SourceSimulator,
	}
}

func (g *generator) statrep(call, group string, z zone, forwarded bool) string {
	digits, _ := g.conditionDigits(z)
	if g.roll(g.sc.Quirks.ShorthandPct) && strings.HasSuffix(digits, "1") {
		digits = strings.TrimRight(digits, "1") + "+"
	}
	grid := pick(g.rng, z.Grids)
	srid := 100 + g.rng.Intn(900)
	comment := pick(g.rng, z.Comments)
	if forwarded {
		origin := pick(g.rng, g.sc.Callsigns)
		return fmt.Sprintf("%s: %s ,%s,%s,%d,%s,%s,%s,{F%%}",
			call, group, grid, g.precedence(), srid, digits, comment, origin)
	}
	return fmt.Sprintf("%s: %s ,%s,%s,%d,%s,%s,{&%%}",
		call, group, grid, g.precedence(), srid, digits, comment)
}

func (g *generator) compact(call, group string, z zone, nine bool) string {
	_, digits := g.conditionDigits(z)
	grid := pick(g.rng, z.Grids)
	comment := pick(g.rng, z.Comments)
	if nine {
		scope := 1 + g.rng.Intn(3)
		return fmt.Sprintf("%s: %s F!301 %d%s %s %s", call, group, scope, digits, grid, comment)
	}
	return fmt.Sprintf("%s: %s F!304 %s %s %s", call, group, digits, grid, comment)
}

func (g *generator) alert(call, group string) string {
	a := pick(g.rng, g.sc.Alerts)
	return fmt.Sprintf("%s: %s ,%d,%s,%s,{%%%%}", call, group, a.Severity, a.Title, a.Body)
}

func (g *generator) bulletin(call, group string) string {
	seq := 100 + g.rng.Intn(900)
	return fmt.Sprintf("%s: %s MSG ,%03d, %s {^%%}", call, group, seq, pick(g.rng, g.sc.Bulletins))
}

func (g *generator) message(call, group string) (text, to string) {
	body := pick(g.rng, g.sc.Messages)
	// A slice of the traffic goes station to station instead of to a group.
	if len(g.sc.Callsigns) > 1 && g.rng.Intn(100) < 20 {
		peer := pick(g.rng, g.sc.Callsigns)
		for peer == call {
			peer = pick(g.rng, g.sc.Callsigns)
		}
		return fmt.Sprintf("%s: %s MSG %s", call, peer, body), peer
	}
	return fmt.Sprintf("%s: %s MSG %s", call, group, body), group
}

// conditionDigits rolls one digit per condition category against the zone's
// weights and assembles both the 12-digit positional string and the 8-digit
// compact ordering. Categories without their own weight reuse a rolled one,
// and the overall code is the worst digit reported.
func (g *generator) conditionDigits(z zone) (full, compact string) {
	d := func(category string) string {
		w := z.Weights[category]
		if len(w) == 0 {
			return "1"
		}
		return pickWeighted(g.rng, w)
	}
	power, water, medical := d("power"), d("water"), d("medical")
	comms, travel, internet := d("comms"), d("travel"), d("internet")
	food, crime := d("food"), d("crime")
	fuel, civil, political := food, crime, crime
	overall := worst(power, water, medical, comms, travel, internet, fuel, food, crime)
	full = overall + power + water + medical + comms + travel + internet + fuel + food + crime + civil + political
	compact = comms + medical + crime + travel + power + water + food + fuel
	return full, compact
}

func (g *generator) precedence() string {
	switch r := g.rng.Intn(100); {
	case r < 80:
		return "1"
	case r < 95:
		return "2"
	default:
		return "3"
	}
}

func (g *generator) applyQuirks(call, text string) string {
	if g.roll(g.sc.Quirks.DupPrefixPct) {
		text = call + ": " + text
	}
	if g.roll(g.sc.Quirks.NoisePct) {
		text = g.garble(text)
	}
	return text
}

var noiseRunes = []rune{'¿', '¤', '·', '×', '¶'}

// garble splices a few non-ASCII runes into the frame the way a marginal
// decode does.
func (g *generator) garble(text string) string {
	runes := []rune(text)
	for i := 0; i < 1+g.rng.Intn(3); i++ {
		pos := g.rng.Intn(len(runes) + 1)
		noise := noiseRunes[g.rng.Intn(len(noiseRunes))]
		runes = append(runes[:pos], append([]rune{noise}, runes[pos:]...)...)
	}
	return string(runes)
}

func (g *generator) clock() string {
	if g.roll(g.sc.Quirks.BadClockPct) {
		if g.rng.Intn(2) == 0 {
			return ""
		}
		return time.Now().UTC().Format("01/02/06 15:04")
	}
	skew := time.Duration(g.rng.Intn(90)) * time.Second
	return time.Now().UTC().Add(-skew).Format("2006-01-02 15:04:05")
}

func (g *generator) roll(pct int) bool {
	return pct > 0 && g.rng.Intn(100) < pct
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

// worst returns the highest severity digit reported (1 green < 2 yellow < 3 red).
func worst(digits ...string) string {
	overall := digits[0]
	for _, d := range digits[1:] {
		if d > overall {
			overall = d
		}
	}
	return overall
}

// pickWeighted draws a key with probability proportional to its weight.
// Keys are walked in sorted order so a fixed seed replays the same traffic.
func pickWeighted(rng *rand.Rand, weights map[string]int) string {
	keys := make([]string, 0, len(weights))
	total := 0
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		total += weights[k]
	}
	if total <= 0 {
		return keys[0]
	}
	roll := rng.Intn(total)
	for _, k := range keys {
		roll -= weights[k]
		if roll < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}
