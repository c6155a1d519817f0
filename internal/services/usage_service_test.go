package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"botmetrics/internal/domain"
	"botmetrics/internal/repo"
)

// frozen is the fixed "now" injected into services under test.
var frozen = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *UsageService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("usage_service_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.CommandInvocation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	svc := NewUsageService(db)
	svc.now = func() time.Time { return frozen }
	return svc
}

func strptr(s string) *string { return &s }

func f64ptr(f float64) *float64 { return &f }

// seed inserts one row directly, bypassing Record's defaulting.
func seed(t *testing.T, svc *UsageService, inv domain.CommandInvocation) {
	t.Helper()
	if err := repo.InsertInvocation(context.Background(), svc.DB, &inv); err != nil {
		t.Fatalf("seed %s/%s: %v", inv.CommandName, inv.UserID, err)
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{in: "1h", want: time.Hour},
		{in: "24h", want: 24 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "1w", want: 7 * 24 * time.Hour},
		{in: "1m", want: 30 * 24 * time.Hour},
		{in: " 2d ", want: 48 * time.Hour},
		{in: "", err: true},
		{in: "h", err: true},
		{in: "0d", err: true},
		{in: "-1h", err: true},
		{in: "1y", err: true},
		{in: "abc", err: true},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("ParsePeriod(%q): want ErrInvalidPeriod, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePeriod(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePeriod(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseBreakdown(t *testing.T) {
	for in, want := range map[string]GuildBreakdown{
		"":         BreakdownOverall,
		"overall":  BreakdownOverall,
		"Commands": BreakdownCommands,
		"users":    BreakdownUsers,
		"channels": BreakdownChannels,
	} {
		got, err := ParseBreakdown(in)
		if err != nil || got != want {
			t.Fatalf("ParseBreakdown(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseBreakdown("messages"); !errors.Is(err, ErrInvalidBreakdown) {
		t.Fatalf("expected ErrInvalidBreakdown, got %v", err)
	}
}

func TestRecord_ValidatesInput(t *testing.T) {
	svc := newService(t)

	cases := []NewInvocation{
		{CommandName: "", UserID: "u1"},
		{CommandName: "   ", UserID: "u1"},
		{CommandName: "ping", UserID: ""},
		{CommandName: "ping", UserID: "u1", ExecutionTime: f64ptr(-0.5)},
	}
	for i, in := range cases {
		if _, err := svc.Record(context.Background(), in); !errors.Is(err, ErrInvalidInvocation) {
			t.Fatalf("case %d: want ErrInvalidInvocation, got %v", i, err)
		}
	}
}

func TestRecord_StampsAndStores(t *testing.T) {
	svc := newService(t)

	inv, err := svc.Record(context.Background(), NewInvocation{
		CommandName:   "weather",
		UserID:        "u1",
		GuildID:       "g1",
		ChannelID:     "c1",
		Success:       true,
		ExecutionTime: f64ptr(0.25),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if inv.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if inv.Timestamp != frozen.Unix() {
		t.Fatalf("timestamp = %d, want %d", inv.Timestamp, frozen.Unix())
	}
	if inv.GuildID == nil || *inv.GuildID != "g1" || inv.ChannelID == nil || *inv.ChannelID != "c1" {
		t.Fatalf("guild/channel not stored: %+v", inv)
	}
}

func TestRecord_DiscardsErrorMessageOnSuccess(t *testing.T) {
	svc := newService(t)

	inv, err := svc.Record(context.Background(), NewInvocation{
		CommandName:  "ping",
		UserID:       "u1",
		Success:      true,
		ErrorMessage: "should not persist",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if inv.ErrorMessage != nil {
		t.Fatalf("error message stored on success: %q", *inv.ErrorMessage)
	}

	fail, err := svc.Record(context.Background(), NewInvocation{
		CommandName:  "ping",
		UserID:       "u1",
		Success:      false,
		ErrorMessage: "timeout",
	})
	if err != nil {
		t.Fatalf("Record failure: %v", err)
	}
	if fail.ErrorMessage == nil || *fail.ErrorMessage != "timeout" {
		t.Fatalf("error message not stored on failure: %+v", fail)
	}
}

func TestTrack_RejectsInvalidSynchronously(t *testing.T) {
	svc := newService(t)

	if err := svc.Track(NewInvocation{CommandName: "", UserID: "u1"}); !errors.Is(err, ErrInvalidInvocation) {
		t.Fatalf("want ErrInvalidInvocation, got %v", err)
	}
}

func TestTrack_EventuallyPersists(t *testing.T) {
	svc := newService(t)

	if err := svc.Track(NewInvocation{CommandName: "roll", UserID: "u1", Success: true}); err != nil {
		t.Fatalf("Track: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		var n int64
		if err := svc.DB.Model(&domain.CommandInvocation{}).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if n == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("tracked invocation never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCommandStat_NeverUsedCommand(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u1", Timestamp: frozen.Unix(), Success: true})

	if _, err := svc.CommandStat(context.Background(), "nosuch", nil); !errors.Is(err, ErrNoStats) {
		t.Fatalf("want ErrNoStats, got %v", err)
	}

	st, err := svc.CommandStat(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("CommandStat: %v", err)
	}
	if st.CommandName != "ping" || st.TotalUses != 1 {
		t.Fatalf("unexpected stat: %+v", st)
	}
}

func TestCommandStats_WindowExcludesOldRows(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "old", UserID: "u1", Timestamp: frozen.Add(-48 * time.Hour).Unix(), Success: true})
	seed(t, svc, domain.CommandInvocation{CommandName: "new", UserID: "u1", Timestamp: frozen.Add(-time.Hour).Unix(), Success: true})

	day := 24 * time.Hour
	stats, err := svc.CommandStats(context.Background(), &day)
	if err != nil {
		t.Fatalf("CommandStats: %v", err)
	}
	if len(stats) != 1 || stats[0].CommandName != "new" {
		t.Fatalf("window leak: %+v", stats)
	}

	all, err := svc.CommandStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("CommandStats all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 commands all-time, got %d", len(all))
	}
}

func TestUserStats(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "alice", Timestamp: frozen.Unix(), Success: true})
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "alice", Timestamp: frozen.Unix(), Success: false})
	seed(t, svc, domain.CommandInvocation{CommandName: "roll", UserID: "bob", Timestamp: frozen.Unix(), Success: true})

	stats, err := svc.UserStats(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if len(stats) != 1 || stats[0].TotalUses != 2 || stats[0].SuccessRate != 50.0 {
		t.Fatalf("unexpected user stats: %+v", stats)
	}

	if _, err := svc.UserStats(context.Background(), "carol", nil); !errors.Is(err, ErrNoStats) {
		t.Fatalf("want ErrNoStats, got %v", err)
	}
}

func TestGuildStats_Breakdowns(t *testing.T) {
	svc := newService(t)
	g := strptr("g1")
	c1, c2 := strptr("c1"), strptr("c2")
	for i := 0; i < 3; i++ {
		seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "alice", GuildID: g, ChannelID: c1, Timestamp: frozen.Unix(), Success: true})
	}
	seed(t, svc, domain.CommandInvocation{CommandName: "roll", UserID: "bob", GuildID: g, ChannelID: c2, Timestamp: frozen.Unix(), Success: false})

	overall, err := svc.GuildStats(context.Background(), "g1", nil, BreakdownOverall)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	ov := overall.Overview
	if ov == nil || ov.TotalUses != 4 || ov.SuccessRate != 75.0 || ov.UniqueUsers != 2 || ov.UniqueChannels != 2 {
		t.Fatalf("unexpected overview: %+v", ov)
	}

	cmds, err := svc.GuildStats(context.Background(), "g1", nil, BreakdownCommands)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if len(cmds.Commands) != 2 || cmds.Commands[0].CommandName != "ping" {
		t.Fatalf("unexpected commands breakdown: %+v", cmds.Commands)
	}

	users, err := svc.GuildStats(context.Background(), "g1", nil, BreakdownUsers)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users.Users) != 2 || users.Users[0].UserID != "alice" || users.Users[0].TotalUses != 3 {
		t.Fatalf("unexpected users breakdown: %+v", users.Users)
	}

	channels, err := svc.GuildStats(context.Background(), "g1", nil, BreakdownChannels)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(channels.Channels) != 2 || channels.Channels[0].ChannelID != "c1" {
		t.Fatalf("unexpected channels breakdown: %+v", channels.Channels)
	}

	if _, err := svc.GuildStats(context.Background(), "empty", nil, BreakdownOverall); !errors.Is(err, ErrNoStats) {
		t.Fatalf("want ErrNoStats for empty guild, got %v", err)
	}
}

func TestErrorStats_GroupsByCommandAndMessage(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "fetch", UserID: "u1", Timestamp: frozen.Unix(), Success: false, ErrorMessage: strptr("timeout")})
	seed(t, svc, domain.CommandInvocation{CommandName: "fetch", UserID: "u2", Timestamp: frozen.Unix(), Success: false, ErrorMessage: strptr("timeout")})
	seed(t, svc, domain.CommandInvocation{CommandName: "fetch", UserID: "u3", Timestamp: frozen.Unix(), Success: false})
	seed(t, svc, domain.CommandInvocation{CommandName: "ok", UserID: "u1", Timestamp: frozen.Unix(), Success: true})

	errs, err := svc.ErrorStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("ErrorStats: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 failing command, got %d", len(errs))
	}
	if errs["fetch"]["timeout"] != 2 || errs["fetch"][""] != 1 {
		t.Fatalf("unexpected grouping: %+v", errs["fetch"])
	}
}

func TestErrorStats_EmptyMapWhenNothingFailed(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u1", Timestamp: frozen.Unix(), Success: true})

	errs, err := svc.ErrorStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("ErrorStats: %v", err)
	}
	if errs == nil || len(errs) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", errs)
	}
}

func TestUsageTrends_BucketsByHour(t *testing.T) {
	svc := newService(t)
	// Two rows at 09:xx and one at 11:xx, all inside the default window.
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u1", Timestamp: frozen.Add(-3 * time.Hour).Unix(), Success: true})
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u2", Timestamp: frozen.Add(-3*time.Hour + time.Minute).Unix(), Success: true})
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u1", Timestamp: frozen.Add(-time.Hour).Unix(), Success: true})

	trends, err := svc.UsageTrends(context.Background(), 0) // defaults to 24h
	if err != nil {
		t.Fatalf("UsageTrends: %v", err)
	}
	if trends["ping"]["09"] != 2 || trends["ping"]["11"] != 1 {
		t.Fatalf("unexpected buckets: %+v", trends["ping"])
	}
}

func TestTimeOfDayStats_AlwaysTwentyFourBuckets(t *testing.T) {
	svc := newService(t)
	seed(t, svc, domain.CommandInvocation{CommandName: "ping", UserID: "u1", Timestamp: frozen.Unix(), Success: true})

	hours, err := svc.TimeOfDayStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("TimeOfDayStats: %v", err)
	}
	if len(hours) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(hours))
	}
	for i, h := range hours {
		want := twoDigit(i)
		if h.Hour != want {
			t.Fatalf("bucket %d labelled %q, want %q", i, h.Hour, want)
		}
	}
	// frozen is 12:00 UTC.
	if hours[12].Count != 1 {
		t.Fatalf("expected 1 hit at hour 12, got %d", hours[12].Count)
	}
	if hours[0].Count != 0 {
		t.Fatalf("expected zero-filled empty bucket, got %d", hours[0].Count)
	}
}

func TestInvocations_PagingDefaults(t *testing.T) {
	svc := newService(t)
	for i := 0; i < 25; i++ {
		seed(t, svc, domain.CommandInvocation{
			CommandName: "ping",
			UserID:      "u1",
			Timestamp:   frozen.Add(-time.Duration(i) * time.Minute).Unix(),
			Success:     true,
		})
	}

	items, total, err := svc.Invocations(context.Background(), repo.InvocationFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("Invocations: %v", err)
	}
	if total != 25 || len(items) != 20 {
		t.Fatalf("total=%d len=%d, want 25/20", total, len(items))
	}
	// Newest first.
	if items[0].Timestamp != frozen.Unix() {
		t.Fatalf("page not newest-first: %d", items[0].Timestamp)
	}

	page2, _, err := svc.Invocations(context.Background(), repo.InvocationFilter{}, 2, 20)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 5 {
		t.Fatalf("page 2 len=%d, want 5", len(page2))
	}
}

func TestTopErrorTotals_Ordering(t *testing.T) {
	in := map[string]map[string]int64{
		"beta":  {"x": 2, "y": 1},
		"alpha": {"x": 3},
		"gamma": {"z": 3},
	}
	got := TopErrorTotals(in)
	want := []ErrorSummary{
		{CommandName: "alpha", Errors: 3},
		{CommandName: "beta", Errors: 3},
		{CommandName: "gamma", Errors: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
