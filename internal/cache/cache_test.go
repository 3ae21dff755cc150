package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

func sampleUsage() map[core.Period]core.AggregatedUsage {
	return map[core.Period]core.AggregatedUsage{
		core.PeriodToday: {"gpt-5": {Model: "gpt-5", CostUSD: 1.5}},
		core.PeriodWeek:  {"gpt-5": {Model: "gpt-5", CostUSD: 9}},
	}
}

func TestNew_Empty(t *testing.T) {
	c := New(core.PeriodWeek)
	snap := c.Snapshot()
	if snap.HasData() || c.HasData() {
		t.Error("new cache should have no data")
	}
	if !snap.UpdatedAt.IsZero() {
		t.Error("new cache should have zero timestamp")
	}
	if !snap.Available {
		t.Error("new cache should assume the tool is available")
	}
	if snap.Selected != core.PeriodWeek {
		t.Errorf("selected = %q, want week", snap.Selected)
	}
	if snap.Current() != nil {
		t.Error("Current() should be nil before first fetch")
	}
}

func TestNew_InvalidPeriodDefaultsToToday(t *testing.T) {
	if got := New("month").Selected(); got != core.PeriodToday {
		t.Errorf("selected = %q, want today", got)
	}
}

func TestCommit_ReplacesSnapshot(t *testing.T) {
	c := New(core.PeriodToday)
	c.Fail(errors.New("boom"), false)

	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	c.Commit(sampleUsage(), at)

	snap := c.Snapshot()
	if !snap.HasData() || !snap.Available || snap.LastError != "" {
		t.Errorf("snapshot after commit = %+v", snap)
	}
	if !snap.UpdatedAt.Equal(at) {
		t.Errorf("updated at = %v, want %v", snap.UpdatedAt, at)
	}
	if got := snap.Current()["gpt-5"].CostUSD; got != 1.5 {
		t.Errorf("today cost = %f, want 1.5", got)
	}

	c.Commit(map[core.Period]core.AggregatedUsage{core.PeriodToday: {}}, at.Add(time.Minute))
	snap = c.Snapshot()
	if _, ok := snap.Usage[core.PeriodWeek]; ok {
		t.Error("commit should replace, not patch, the previous usage")
	}
}

func TestFail_KeepsPreviousUsage(t *testing.T) {
	c := New(core.PeriodToday)
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	c.Commit(sampleUsage(), at)

	c.Fail(errors.New("ccusage exited with an error"), true)

	snap := c.Snapshot()
	if !snap.HasData() || snap.Current()["gpt-5"].CostUSD != 1.5 {
		t.Errorf("usage lost after failure: %+v", snap.Usage)
	}
	if !snap.UpdatedAt.Equal(at) {
		t.Error("failure should not touch the timestamp")
	}
	if snap.LastError == "" {
		t.Error("LastError should be recorded")
	}

	c.Fail(errors.New("not found"), false)
	if c.Snapshot().Available {
		t.Error("Available should be false after invocation failure")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := New(core.PeriodToday)
	c.Commit(sampleUsage(), time.Now())

	snap := c.Snapshot()
	snap.Usage[core.PeriodToday]["gpt-5"] = core.ModelBreakdown{Model: "gpt-5", CostUSD: 100}
	delete(snap.Usage, core.PeriodWeek)

	again := c.Snapshot()
	if again.Usage[core.PeriodToday]["gpt-5"].CostUSD != 1.5 {
		t.Error("mutating a snapshot leaked into the cache")
	}
	if _, ok := again.Usage[core.PeriodWeek]; !ok {
		t.Error("deleting from a snapshot leaked into the cache")
	}
}

func TestCommit_EmptyUsageIsData(t *testing.T) {
	c := New(core.PeriodToday)
	c.Commit(map[core.Period]core.AggregatedUsage{core.PeriodToday: {}}, time.Now())

	snap := c.Snapshot()
	if !snap.HasData() {
		t.Fatal("empty aggregation should count as data")
	}
	cur := snap.Current()
	if cur == nil || len(cur) != 0 {
		t.Errorf("Current() = %#v, want empty non-nil", cur)
	}
	if !snap.Available {
		t.Error("Available should stay true")
	}
}

func TestSelect(t *testing.T) {
	c := New(core.PeriodToday)
	if !c.Select(core.PeriodOneHour) {
		t.Fatal("Select(1h) = false")
	}
	if c.Selected() != core.PeriodOneHour {
		t.Errorf("selected = %q, want 1h", c.Selected())
	}
	if c.Select("month") {
		t.Error("Select(month) = true, want false")
	}
	if c.Selected() != core.PeriodOneHour {
		t.Error("invalid Select changed the period")
	}
}

func TestCycles_CountsCommitsAndFailures(t *testing.T) {
	c := New(core.PeriodToday)
	c.Select(core.PeriodWeek)
	if got := c.Snapshot().Cycles; got != 0 {
		t.Fatalf("Cycles after Select = %d, want 0", got)
	}

	c.Commit(map[core.Period]core.AggregatedUsage{core.PeriodToday: {}}, time.Now())
	c.Fail(errors.New("boom"), true)
	if got := c.Snapshot().Cycles; got != 2 {
		t.Errorf("Cycles = %d, want 2", got)
	}
}
