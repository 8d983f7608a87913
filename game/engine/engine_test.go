package engine

import (
	"image"
	"strings"
	"testing"
)

func TestParseAction(t *testing.T) {
	t.Run("action names", func(t *testing.T) {
		cases := map[string]Action{
			"left":    ActionLeft,
			"right":   ActionRight,
			"throw":   ActionThrow,
			"forward": ActionForward,
		}
		for name, want := range cases {
			got, err := ParseAction(name)
			if err != nil {
				t.Fatalf("ParseAction(%q) failed: %v", name, err)
			}
			if got != want {
				t.Errorf("ParseAction(%q) = %v, want %v", name, got, want)
			}
		}
	})

	t.Run("browser key codes", func(t *testing.T) {
		cases := map[string]Action{
			"ArrowLeft":  ActionLeft,
			"ArrowRight": ActionRight,
			"Space":      ActionThrow,
		}
		for key, want := range cases {
			got, err := ParseAction(key)
			if err != nil {
				t.Fatalf("ParseAction(%q) failed: %v", key, err)
			}
			if got != want {
				t.Errorf("ParseAction(%q) = %v, want %v", key, got, want)
			}
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		if _, err := ParseAction("Escape"); err == nil {
			t.Error("Expected error for unknown action")
		}
	})
}

func TestActionRawMapping(t *testing.T) {
	// Reduced space maps onto the raw simulator actions 1/4/7/9.
	cases := map[Action]int{
		ActionLeft:    1,
		ActionForward: 4,
		ActionRight:   7,
		ActionThrow:   9,
	}
	for action, want := range cases {
		if got := action.Raw(); got != want {
			t.Errorf("%v.Raw() = %d, want %d", action, got, want)
		}
	}
}

func TestFruitbot_Reset(t *testing.T) {
	eng := NewFruitbot(42)

	frame, err := eng.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if frame == nil {
		t.Fatal("Reset returned nil frame")
	}
	if frame.Bounds().Dx() != frameWidth || frame.Bounds().Dy() != frameHeight {
		t.Errorf("Unexpected frame bounds: %v", frame.Bounds())
	}
}

func TestFruitbot_Step(t *testing.T) {
	eng := NewFruitbot(42)
	if _, err := eng.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	t.Run("advances without terminating early", func(t *testing.T) {
		data, err := eng.Step(ActionForward)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if data.Frame == nil {
			t.Error("Step returned nil frame")
		}
		if data.Done {
			t.Error("Episode finished on first step")
		}
	})

	t.Run("lane movement stays in bounds", func(t *testing.T) {
		for i := 0; i < laneCount+2; i++ {
			if _, err := eng.Step(ActionLeft); err != nil {
				t.Fatalf("Step failed: %v", err)
			}
		}
		if eng.playerLane != 0 {
			t.Errorf("Expected player pinned to lane 0, got %d", eng.playerLane)
		}
		for i := 0; i < laneCount+2; i++ {
			if _, err := eng.Step(ActionRight); err != nil {
				t.Fatalf("Step failed: %v", err)
			}
		}
		if eng.playerLane != laneCount-1 {
			t.Errorf("Expected player pinned to lane %d, got %d", laneCount-1, eng.playerLane)
		}
	})
}

func TestFruitbot_EpisodeTerminates(t *testing.T) {
	eng := NewFruitbot(7)
	if _, err := eng.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	done := false
	for i := 0; i < episodeLength+1; i++ {
		data, err := eng.Step(ActionForward)
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if data.Done {
			done = true
			break
		}
	}
	if !done {
		t.Error("Episode never reached a terminal state")
	}
}

func TestFruitbot_Deterministic(t *testing.T) {
	run := func(seed int64) []float64 {
		eng := NewFruitbot(seed)
		if _, err := eng.Reset(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		var rewards []float64
		for i := 0; i < 50; i++ {
			data, err := eng.Step(ActionForward)
			if err != nil {
				t.Fatalf("Step failed: %v", err)
			}
			rewards = append(rewards, data.Reward)
			if data.Done {
				break
			}
		}
		return rewards
	}

	a, b := run(99), run(99)
	if len(a) != len(b) {
		t.Fatalf("Runs diverged in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Reward diverged at step %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestFruitbot_Close(t *testing.T) {
	eng := NewFruitbot(1)
	if _, err := eng.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := eng.Reset(); err != ErrEngineClosed {
		t.Errorf("Expected ErrEngineClosed from Reset, got %v", err)
	}
	if _, err := eng.Step(ActionForward); err != ErrEngineClosed {
		t.Errorf("Expected ErrEngineClosed from Step, got %v", err)
	}
}

func TestTryClose(t *testing.T) {
	t.Run("engine with close capability", func(t *testing.T) {
		eng := NewFruitbot(1)
		if !TryClose(eng) {
			t.Error("Expected TryClose to invoke Close on Fruitbot")
		}
	})

	t.Run("engine without close capability", func(t *testing.T) {
		if TryClose(bareEngine{}) {
			t.Error("Expected TryClose to report false for engine without Close")
		}
	})
}

// bareEngine implements Engine but not Closer.
type bareEngine struct{}

func (bareEngine) Reset() (*image.RGBA, error)   { return nil, nil }
func (bareEngine) Step(Action) (StepData, error) { return StepData{}, nil }
func (bareEngine) Render() *image.RGBA           { return nil }

func TestEncodeFrame(t *testing.T) {
	eng := NewFruitbot(3)
	frame, err := eng.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	uri, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("Expected JPEG data URI, got prefix %q", uri[:min(len(uri), 30)])
	}
	if len(uri) < 100 {
		t.Errorf("Encoded frame suspiciously small: %d bytes", len(uri))
	}
}
