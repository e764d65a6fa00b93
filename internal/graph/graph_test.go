package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

func wp(id string, deps ...string) *models.WorkPackage {
	return &models.WorkPackage{ID: id, Name: id, Description: id, Branch: "swarm/" + id, Dependencies: deps}
}

func TestAssignWaves(t *testing.T) {
	tests := []struct {
		name string
		wps  []*models.WorkPackage
		want map[string]int
	}{
		{
			name: "empty",
			wps:  nil,
			want: map[string]int{},
		},
		{
			name: "independent packages share wave 1",
			wps:  []*models.WorkPackage{wp("a"), wp("b"), wp("c")},
			want: map[string]int{"a": 1, "b": 1, "c": 1},
		},
		{
			name: "two roots and a join",
			wps:  []*models.WorkPackage{wp("wp-1"), wp("wp-2"), wp("wp-3", "wp-1", "wp-2")},
			want: map[string]int{"wp-1": 1, "wp-2": 1, "wp-3": 2},
		},
		{
			name: "chain declared out of order",
			wps:  []*models.WorkPackage{wp("c", "b"), wp("b", "a"), wp("a")},
			want: map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name: "wave is one past the deepest dependency",
			wps:  []*models.WorkPackage{wp("a"), wp("b", "a"), wp("c", "b"), wp("d", "a", "c")},
			want: map[string]int{"a": 1, "b": 2, "c": 3, "d": 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AssignWaves(tt.wps)
			if err != nil {
				t.Fatalf("AssignWaves() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AssignWaves() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	_, err := AssignWaves([]*models.WorkPackage{wp("a", "ghost")})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("error = %v, want ErrUnknownDependency", err)
	}
	if !strings.Contains(err.Error(), "a depends on ghost") {
		t.Errorf("error %q should name both ids", err)
	}
}

func TestBuild_Cycles(t *testing.T) {
	tests := []struct {
		name      string
		wps       []*models.WorkPackage
		wantInMsg string
	}{
		{"self loop", []*models.WorkPackage{wp("a", "a")}, "a -> a"},
		{"two node cycle", []*models.WorkPackage{wp("a", "b"), wp("b", "a")}, "a -> b -> a"},
		{"cycle behind a root", []*models.WorkPackage{wp("root"), wp("x", "root", "z"), wp("y", "x"), wp("z", "y")}, "x -> z -> y -> x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssignWaves(tt.wps)
			if !errors.Is(err, ErrCycleDetected) {
				t.Fatalf("error = %v, want ErrCycleDetected", err)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("error %q should contain path %q", err, tt.wantInMsg)
			}
		})
	}
}

func TestLevels_KeepInputOrder(t *testing.T) {
	g := New()
	err := g.Build([]*models.WorkPackage{wp("z"), wp("m", "z"), wp("a"), wp("b", "a")})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := [][]string{{"z", "a"}, {"m", "b"}}
	if got := g.Levels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}
	if g.Size() != 4 {
		t.Errorf("Size() = %d, want 4", g.Size())
	}
	if g.Wave("m") != 2 || g.Wave("nope") != 0 {
		t.Errorf("Wave() returned unexpected values")
	}
}

func TestDependenciesAndDependents(t *testing.T) {
	g := New()
	if err := g.Build([]*models.WorkPackage{wp("a"), wp("b", "a"), wp("c", "a", "b")}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := g.GetDependencies("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("GetDependencies(c) = %v", got)
	}
	if got := g.GetDependents("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("GetDependents(a) = %v", got)
	}
	if got := g.GetDependents("c"); len(got) != 0 {
		t.Errorf("GetDependents(c) = %v, want none", got)
	}
}

func TestBuild_DebugLog(t *testing.T) {
	g := New()
	var lines []string
	g.SetDebugLog(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	if err := g.Build([]*models.WorkPackage{wp("a")}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(lines) == 0 {
		t.Error("debug log was not called")
	}
}
