package roller

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
)

func TestSeededIsDeterministicPerCoordinate(t *testing.T) {
	r := NewSeeded(42)
	req := notation.Request{Index: 2, Pass: 0, Die: notation.D20, Amount: 5}
	first, err := r.Roll(context.Background(), req)
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	second, err := NewSeeded(42).Roll(context.Background(), req)
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rolls differ: %v vs %v", first, second)
	}
	for _, v := range first {
		if v < 1 || v > 20 {
			t.Fatalf("value %d out of range", v)
		}
	}
	if r.Seed() != 42 {
		t.Fatalf("Seed() = %d", r.Seed())
	}
}

func TestSeededEngineReplay(t *testing.T) {
	roll := func() notation.Result {
		result, err := notation.NewEngine(NewSeeded(7)).Roll(context.Background(), "4d6p1+1d20+2d10rr<3", notation.Options{})
		if err != nil {
			t.Fatalf("Roll error = %v", err)
		}
		return result
	}
	a, b := roll(), roll()
	if a.Total != b.Total || a.Breakdown() != b.Breakdown() {
		t.Fatalf("replay differs: %s vs %s", a.Breakdown(), b.Breakdown())
	}
}

func TestSeededHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSeeded(1).Roll(ctx, notation.Request{Die: notation.D6, Amount: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCombineD100(t *testing.T) {
	tests := []struct {
		tens, units int
		want        int
		wantErr     bool
	}{
		{tens: 100, units: 10, want: 100},
		{tens: 100, units: 7, want: 7},
		{tens: 40, units: 10, want: 40},
		{tens: 90, units: 9, want: 99},
		{tens: 10, units: 1, want: 11},
		{tens: 55, units: 1, wantErr: true},
		{tens: 0, units: 1, wantErr: true},
		{tens: 10, units: 11, wantErr: true},
	}
	for _, tt := range tests {
		got, err := CombineD100(tt.tens, tt.units)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("CombineD100(%d, %d) expected error", tt.tens, tt.units)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("CombineD100(%d, %d) = %d, %v, want %d", tt.tens, tt.units, got, err, tt.want)
		}
	}
}

func TestThrowRequestsTensAndUnitsForD100(t *testing.T) {
	var thrown []ThrowDie
	thrower := ThrowerFunc(func(_ context.Context, dice []ThrowDie) ([]int, error) {
		thrown = dice
		return []int{100, 10, 30, 4}, nil
	})
	hint := notation.Hint{Color: "red"}
	values, err := NewThrow(thrower).Roll(context.Background(), notation.Request{Die: notation.D100, Amount: 2, Hint: hint})
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	if !reflect.DeepEqual(values, []int{100, 34}) {
		t.Fatalf("values = %v", values)
	}
	want := []ThrowDie{
		{Faces: 100, Tens: true, Hint: hint},
		{Faces: 10, Hint: hint},
		{Faces: 100, Tens: true, Hint: hint},
		{Faces: 10, Hint: hint},
	}
	if !reflect.DeepEqual(thrown, want) {
		t.Fatalf("thrown = %+v", thrown)
	}
}

func TestThrowThroughEngineAppliesD100Mode(t *testing.T) {
	thrower := ThrowerFunc(func(_ context.Context, dice []ThrowDie) ([]int, error) {
		return []int{100, 10}, nil
	})
	engine := notation.NewEngine(NewThrow(thrower))
	result, err := engine.Roll(context.Background(), "1d100", notation.Options{D100Mode: notation.D100Zero})
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("Total = %d, want 0", result.Total)
	}
}

func TestThrowPassesRegularDiceThrough(t *testing.T) {
	thrower := ThrowerFunc(func(_ context.Context, dice []ThrowDie) ([]int, error) {
		if len(dice) != 3 || dice[0].Faces != 8 {
			t.Fatalf("dice = %+v", dice)
		}
		return []int{8, 1, 5}, nil
	})
	values, err := NewThrow(thrower).Roll(context.Background(), notation.Request{Die: notation.D8, Amount: 3})
	if err != nil || !reflect.DeepEqual(values, []int{8, 1, 5}) {
		t.Fatalf("Roll = %v, %v", values, err)
	}
}

func TestThrowRejectsWrongCount(t *testing.T) {
	thrower := ThrowerFunc(func(context.Context, []ThrowDie) ([]int, error) {
		return []int{1}, nil
	})
	if _, err := NewThrow(thrower).Roll(context.Background(), notation.Request{Die: notation.D6, Amount: 2}); err == nil {
		t.Fatal("expected count error")
	}
}

func TestSeededGroupsDrawIndependently(t *testing.T) {
	r := NewSeeded(11)
	first, err := r.Roll(context.Background(), notation.Request{Group: 0, Die: notation.D100, Amount: 8})
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	second, err := r.Roll(context.Background(), notation.Request{Group: 1, Die: notation.D100, Amount: 8})
	if err != nil {
		t.Fatalf("Roll error = %v", err)
	}
	if reflect.DeepEqual(first, second) {
		t.Fatalf("groups rolled identical values %v", first)
	}
}
