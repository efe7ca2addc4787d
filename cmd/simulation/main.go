package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goldclear/clearing-api/internal/ledger"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minSettlements = 10
	maxSettlements = 60
	numWorkers     = 5
	serverAddress  = "http://localhost:8080"
)

var corridors = []struct {
	corridorID string
	hubID      string
	vaultHubID string
}{
	{"COR_ZA_AE", "HUB_JNB", "HUB_DXB"},
	{"COR_CH_SG", "HUB_ZRH", "HUB_ZRH"},
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient drives the settlement lifecycle over HTTP with one
// token per role, mirroring how the dashboard's role-bound sessions hit
// the API.
type simulationClient struct {
	baseURL string
	tokens  map[types.Role]string
	client  *http.Client

	statsMu sync.Mutex
	stats   map[string]*routeStats
}

// roleCredentials are the development credentials seeded by the server.
var roleCredentials = map[types.Role][2]string{
	types.RoleTreasury:   {"treasury-api-key", "treasury-api-secret"},
	types.RoleVaultOps:   {"vault-api-key", "vault-api-secret"},
	types.RoleCompliance: {"compliance-api-key", "compliance-api-secret"},
	types.RoleAdmin:      {"admin-api-key", "admin-api-secret"},
}

// newSimulationClient authenticates every role and prepares stats.
func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		tokens:  make(map[types.Role]string),
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"auth":      {name: "Authentication"},
			"open":      {name: "Open Settlement"},
			"payment":   {name: "Record Payment"},
			"approval":  {name: "Update Approval"},
			"action":    {name: "Apply Action"},
			"ledger":    {name: "Get Ledger"},
			"snapshot":  {name: "Capital Snapshot"},
		},
	}

	for role, creds := range roleCredentials {
		token, err := sc.authenticate(creds[0], creds[1])
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate role %s: %w", role, err)
		}
		sc.tokens[role] = token
	}

	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.statsMu.Lock()
	defer sc.statsMu.Unlock()
	sc.stats[route].addDuration(time.Since(start))
	if failed {
		sc.stats[route].failures++
	}
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	failed := false
	defer func() { sc.record("auth", start, failed) }()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		failed = true
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		failed = true
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		failed = true
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON performs an authenticated request and decodes the envelope
// data into out.
func (sc *simulationClient) doJSON(route, method, path string, role types.Role, payload interface{}, out interface{}) error {
	start := time.Now()
	failed := false
	defer func() { sc.record(route, start, failed) }()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			failed = true
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		failed = true
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.tokens[role])
	req.Header.Set("Content-Type", "application/json")
	if method == "POST" {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		failed = true
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		failed = true
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("route", route).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return fmt.Errorf("%s failed with status %d: %s", route, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		failed = true
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		failed = true
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// openSettlement opens a settlement with randomized economics.
func (sc *simulationClient) openSettlement(workerID, n int) (*types.Settlement, error) {
	venue := corridors[rand.Intn(len(corridors))]

	payload := map[string]interface{}{
		"order_id":             fmt.Sprintf("ORD_%d_%d_%s", workerID, n, uuid.New().String()[:8]),
		"listing_id":           "LST_" + uuid.New().String()[:8],
		"buyer_org_id":         fmt.Sprintf("ORG_buyer_%d", rand.Intn(5)),
		"seller_org_id":        fmt.Sprintf("ORG_seller_%d", rand.Intn(5)),
		"corridor_id":          venue.corridorID,
		"hub_id":               venue.hubID,
		"vault_hub_id":         venue.vaultHubID,
		"rail":                 "SWIFT_MT",
		"weight_grams":         int64(rand.Intn(4000) + 100),
		"price_per_gram_minor": int64(rand.Intn(2000) + 6000),
		"currency":             "USD",
	}

	var settlement types.Settlement
	if err := sc.doJSON("open", "POST", "/api/v1/settlements", types.RoleAdmin, payload, &settlement); err != nil {
		return nil, err
	}
	if settlement.SettlementID == "" {
		return nil, fmt.Errorf("no settlement ID in response")
	}
	return &settlement, nil
}

// runLifecycle drives one settlement from open through executed DvP.
func (sc *simulationClient) runLifecycle(settlement *types.Settlement) error {
	sid := settlement.SettlementID

	// Activation gate first: pay the fee, approve when required.
	payment := map[string]interface{}{
		"amount_minor": settlement.FeeMinor,
		"reference":    "SIM_" + uuid.New().String()[:8],
	}
	if err := sc.doJSON("payment", "POST", "/api/v1/settlements/"+sid+"/payment", types.RoleTreasury, payment, nil); err != nil {
		return err
	}
	if settlement.RequiresManualApproval {
		approval := map[string]interface{}{"decision": "APPROVED", "note": "simulation auto-approval"}
		if err := sc.doJSON("approval", "POST", "/api/v1/settlements/"+sid+"/approval", types.RoleCompliance, approval, nil); err != nil {
			return err
		}
	}

	steps := []struct {
		action types.Action
		role   types.Role
	}{
		{types.ActionConfirmFundsFinal, types.RoleTreasury},
		{types.ActionAllocateGold, types.RoleVaultOps},
		{types.ActionMarkVerificationCleared, types.RoleCompliance},
		{types.ActionAuthorizeSettlement, types.RoleAdmin},
		{types.ActionExecuteDVP, types.RoleAdmin},
	}

	for _, step := range steps {
		payload := map[string]interface{}{"action": string(step.action)}
		if err := sc.doJSON("action", "POST", "/api/v1/settlements/"+sid+"/actions", step.role, payload, nil); err != nil {
			return fmt.Errorf("action %s: %w", step.action, err)
		}
	}

	// Verify replay integrity: the ledger must end with escrow-closed.
	var entries []ledger.Entry
	if err := sc.doJSON("ledger", "GET", "/api/v1/settlements/"+sid+"/ledger", types.RoleAdmin, nil, &entries); err != nil {
		return err
	}
	if len(entries) == 0 || entries[len(entries)-1].Type != ledger.EntryEscrowClosed {
		return fmt.Errorf("ledger for %s does not end with escrow-closed", sid)
	}

	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the settlement lifecycle simulation against a running API
// server, with concurrent workers driving independent settlements.
func main() {
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to initialize simulation client; is the server running at %s?", serverAddress)
	}

	targetSettlements := rand.Intn(maxSettlements-minSettlements) + minSettlements
	log.Info().Int("target_settlements", targetSettlements).Msg("Starting simulation")

	var (
		wg        sync.WaitGroup
		completed int
		failures  int
		mu        sync.Mutex
	)

	perWorker := targetSettlements / numWorkers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for n := 0; n < perWorker; n++ {
				settlement, err := simClient.openSettlement(workerID, n)
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Msg("failed to open settlement")
					mu.Lock()
					failures++
					mu.Unlock()
					continue
				}

				if err := simClient.runLifecycle(settlement); err != nil {
					log.Error().Err(err).
						Str("settlement_id", settlement.SettlementID).
						Msg("lifecycle failed")
					mu.Lock()
					failures++
					mu.Unlock()
					continue
				}

				mu.Lock()
				completed++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	// Pull a final capital snapshot so the run ends with the book view.
	var snapshot map[string]interface{}
	if err := simClient.doJSON("snapshot", "GET", "/api/v1/capital/snapshot", types.RoleAdmin, nil, &snapshot); err != nil {
		log.Error().Err(err).Msg("failed to fetch final capital snapshot")
	} else {
		log.Info().
			Interface("level", snapshot["level"]).
			Interface("ecr_bps", snapshot["ecr_bps"]).
			Msg("final capital snapshot")
	}

	log.Info().
		Int("completed", completed).
		Int("failures", failures).
		Msg("Simulation finished")

	simClient.printPerformanceStats()
}
