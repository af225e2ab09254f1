package service

import (
	"context"
	"errors"
	"testing"
)

type fake struct {
	name  string
	order *[]string
	err   error
}

func (f *fake) Run()           { *f.order = append(*f.order, "run:"+f.name) }
func (f *fake) String() string { return f.name }

func (f *fake) Shutdown(_ context.Context) error {
	*f.order = append(*f.order, "stop:"+f.name)
	return f.err
}

func TestGroup(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	g := Group{}
	g.Add(&fake{name: "a", order: &order}, "not runnable", &fake{name: "b", order: &order, err: boom})
	g.Start()
	err := g.Shutdown(context.Background())

	want := []string{"run:a", "run:b", "stop:b", "stop:a"}
	if len(order) != len(want) {
		t.Fatalf("order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order %v, want %v", order, want)
			break
		}
	}
	if !errors.Is(err, boom) {
		t.Errorf("shutdown error %v doesn't wrap %v", err, boom)
	}
}
