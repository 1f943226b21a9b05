package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/service"
	"github.com/wricardo/racelobby/game/session"
)

// Swarm watches the updates of its bots and plays every race they enter by
// reporting a random finishing order once the race time has passed.
type Swarm struct {
	baseURL  string
	client   *http.Client
	raceTime time.Duration
	logger   *log.Logger

	racing   map[string]lobby.Data // lobby id -> snapshot that started the race
	reported int
	rnd      *rand.Rand
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewSwarm creates a swarm reporting to the server at baseURL
func NewSwarm(baseURL string, raceTime time.Duration, logger *log.Logger) *Swarm {
	if logger == nil {
		logger = log.Default()
	}
	return &Swarm{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		raceTime: raceTime,
		logger:   logger,
		racing:   make(map[string]lobby.Data),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Watch consumes updates until ctx is done, then waits for pending reports
func (s *Swarm) Watch(ctx context.Context, updates <-chan session.Update) {
	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			s.Observe(ctx, u)
		}
	}
}

// Observe schedules one report per race. Every bot of a lobby sees the same
// update, so races are keyed by lobby.
func (s *Swarm) Observe(ctx context.Context, u session.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Data.State != lobby.StateRacing {
		delete(s.racing, u.LobbyID)
		return
	}
	if _, ok := s.racing[u.LobbyID]; ok || u.Data.Resource == "" {
		return
	}

	s.racing[u.LobbyID] = u.Data
	results := placements(u.Data.Players, s.rnd)
	s.logger.Printf("[SWARM] lobby %s racing on %s with %d players", u.LobbyID, u.Data.Resource, len(u.Data.Players))

	s.wg.Add(1)
	go func(res string) {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.raceTime):
		}
		if err := s.report(ctx, res, results); err != nil {
			s.logger.Printf("[SWARM] report for %s failed: %v", res, err)
			return
		}
		s.mu.Lock()
		s.reported++
		s.mu.Unlock()
		s.logger.Printf("[SWARM] reported %d results on %s", len(results), res)
	}(string(u.Data.Resource))
}

// Reported returns how many rounds the swarm has finished
func (s *Swarm) Reported() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported
}

func (s *Swarm) report(ctx context.Context, res string, results []gameplay.Result) error {
	body, err := json.Marshal(service.ResultsRequest{Results: results})
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/resources/%s/results", s.baseURL, url.PathEscape(res))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("post results failed: %s - %s", resp.Status, errResp["error"])
	}
	return nil
}

// placements shuffles players into a finishing order
func placements(players []string, rnd *rand.Rand) []gameplay.Result {
	order := make([]string, len(players))
	copy(order, players)
	rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	results := make([]gameplay.Result, len(order))
	for i, p := range order {
		results[i] = gameplay.Result{Player: p, Place: i + 1}
	}
	return results
}
