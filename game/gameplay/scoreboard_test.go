package gameplay

import (
	"errors"
	"testing"

	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
)

func TestPointsFor(t *testing.T) {
	tests := []struct {
		place, racers, want int
	}{
		{1, 4, 8},
		{4, 4, 2},
		{1, 1, 2},
		{0, 4, 0},
		{5, 4, 0},
	}

	for _, tt := range tests {
		if got := PointsFor(tt.place, tt.racers); got != tt.want {
			t.Errorf("PointsFor(%d, %d) = %d, want %d", tt.place, tt.racers, got, tt.want)
		}
	}
}

func TestScoreboard_RoundLifecycle(t *testing.T) {
	sb := NewScoreboard()
	var _ lobby.Gameplay = sb

	if sb.RoundFinished("Map_01") {
		t.Fatal("No round should be finished before one begins")
	}

	sb.BeginRound("Map_01", []string{"p1", "p2", "p3"})
	if sb.RoundFinished("Map_01") {
		t.Fatal("A new round should not be finished")
	}
	if active := sb.Active(); len(active) != 1 || active[0] != "Map_01" {
		t.Errorf("Active() = %v", active)
	}

	err := sb.Finish("Map_01", []Result{
		{Player: "p2", Place: 1},
		{Player: "p1", Place: 2, Points: 5},
		{Player: "p3", Place: 3},
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if !sb.RoundFinished("Map_01") {
		t.Error("Round should be finished")
	}

	placements := sb.Placements("Map_01")
	want := map[string]lobby.Placement{
		"p2": {Place: 1, Points: 6},
		"p1": {Place: 2, Points: 5},
		"p3": {Place: 3, Points: 2},
	}
	for p, w := range want {
		if placements[p] != w {
			t.Errorf("Placement for %s = %+v, want %+v", p, placements[p], w)
		}
	}

	if err := sb.Finish("Map_01", nil); !errors.Is(err, ErrRoundFinished) {
		t.Errorf("Expected ErrRoundFinished, got %v", err)
	}
	if sb.Rounds() != 1 {
		t.Errorf("Expected 1 finished round, got %d", sb.Rounds())
	}
	if len(sb.Active()) != 0 {
		t.Error("No round should be active")
	}

	sb.BeginRound("Map_01", []string{"p1"})
	if sb.RoundFinished("Map_01") {
		t.Error("BeginRound should reset the map's round")
	}
}

func TestScoreboard_FinishErrors(t *testing.T) {
	sb := NewScoreboard()
	sb.BeginRound("Map_01", []string{"p1"})

	tests := []struct {
		name    string
		res     string
		results []Result
		wantErr error
	}{
		{"no round", "Map_02", nil, ErrNoRound},
		{"unknown racer", "Map_01", []Result{{Player: "p9", Place: 1}}, ErrUnknownRacer},
		{"bad place", "Map_01", []Result{{Player: "p1", Place: 0}}, ErrBadPlace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sb.Finish(resource.ID(tt.res), tt.results)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Finish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if sb.RoundFinished("Map_01") {
		t.Error("Rejected results must not finish the round")
	}
}
