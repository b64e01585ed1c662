package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
)

func TestChain(t *testing.T) {
	tbl := superstore(t)
	where, err := NewWhere(`State == "California"`, "")
	if err != nil {
		t.Fatalf("NewWhere() error = %v", err)
	}

	tests := []struct {
		name        string
		modules     []Module
		want        []int
		wantOutcome Outcome
	}{
		{"no modules", nil, []int{0, 1, 2, 3, 4, 5, 6}, OutcomeMatched},
		{"spec only", []Module{defaultEngine.Bind(Category{Value: "Technology"})}, []int{3, 4}, OutcomeMatched},
		{"spec then where", []Module{defaultEngine.Bind(Category{Value: "Technology"}), where}, []int{4}, OutcomeMatched},
		{"nil module skipped", []Module{nil, defaultEngine.Bind(Region{Value: "East"})}, []int{3}, OutcomeMatched},
		{"stops at no match", []Module{defaultEngine.Bind(Region{Value: "North"}), where}, []int{}, OutcomeNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Chain(tbl, tt.modules...)
			if err != nil {
				t.Fatalf("Chain() error = %v", err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.wantOutcome)
			}
			if got := indexes(res.Table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChain_PropagatesErrors(t *testing.T) {
	_, err := Chain(superstore(t), NewEngine(Columns{State: "Province"}).Bind(State{Value: "Texas"}))
	if !errors.Is(err, errhandling.ErrSchema) {
		t.Errorf("Chain() error = %v, want ErrSchema", err)
	}
	if _, err := Chain(nil); !errors.Is(err, errhandling.ErrSchema) {
		t.Errorf("Chain(nil) error = %v, want ErrSchema", err)
	}
}
