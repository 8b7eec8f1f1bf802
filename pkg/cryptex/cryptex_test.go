package cryptex_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/cryptex"
	"github.com/routersec/cryptex-core/pkg/store"
)

func openTestRegistry(t *testing.T, opts ...cryptex.Option) *cryptex.Registry {
	t.Helper()
	kv, err := store.Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return cryptex.NewRegistry(kv, opts...)
}

func testEntry(fn, brand string) *cryptex.Entry {
	return &cryptex.Entry{
		FunctionName: fn,
		BrandingName: brand,
		PseudoCode:   "does something useful",
		Category:     cryptex.CategoryUtility,
	}
}

func TestAddAndLookup(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	e := testEntry("scan_ports", "brand_port_scanner")
	e.Metadata = map[string]string{"protocol": "tcp"}

	if err := r.Add(ctx, e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if e.ID == "" {
		t.Fatal("Add should assign an id")
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("Add should stamp timestamps")
	}

	byFn, err := r.GetByFunctionName(ctx, "scan_ports")
	if err != nil {
		t.Fatalf("GetByFunctionName failed: %v", err)
	}
	if byFn.ID != e.ID || byFn.BrandingName != e.BrandingName {
		t.Errorf("function-name lookup mismatch: %+v", byFn)
	}
	if byFn.Metadata["protocol"] != "tcp" {
		t.Error("metadata not round-tripped")
	}

	byBrand, err := r.GetByBrandingName(ctx, "brand_port_scanner")
	if err != nil {
		t.Fatalf("GetByBrandingName failed: %v", err)
	}
	if byBrand.ID != e.ID {
		t.Errorf("branding-name lookup mismatch: %+v", byBrand)
	}

	byID, err := r.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if byID.FunctionName != "scan_ports" {
		t.Errorf("id lookup mismatch: %+v", byID)
	}
}

func TestAddDuplicateNames(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	if err := r.Add(ctx, testEntry("fn_one", "brand_one")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := r.Add(ctx, testEntry("fn_one", "brand_two"))
	if !qerrors.Is(err, qerrors.ErrDuplicate) {
		t.Errorf("duplicate function_name should fail, got %v", err)
	}

	err = r.Add(ctx, testEntry("fn_two", "brand_one"))
	if !qerrors.Is(err, qerrors.ErrDuplicate) {
		t.Errorf("duplicate branding_name should fail, got %v", err)
	}

	// The failed inserts must leave no stray index entries behind.
	if _, err := r.GetByFunctionName(ctx, "fn_two"); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("failed insert leaked an index entry: %v", err)
	}
	if _, err := r.GetByBrandingName(ctx, "brand_two"); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("failed insert leaked an index entry: %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	cases := []*cryptex.Entry{
		{BrandingName: "b", PseudoCode: "p", Category: cryptex.CategoryOther},
		{FunctionName: "f", PseudoCode: "p", Category: cryptex.CategoryOther},
		{FunctionName: "f", BrandingName: "b", PseudoCode: "p", Category: cryptex.Category(42)},
		{FunctionName: "f", BrandingName: "b", PseudoCode: "p", Category: cryptex.CategoryAny},
	}
	for i, e := range cases {
		if err := r.Add(ctx, e); !qerrors.Is(err, qerrors.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &base
	r := openTestRegistry(t, cryptex.WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	e := testEntry("fn_orig", "brand_orig")
	if err := r.Add(ctx, e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	created := e.CreatedAt

	later := base.Add(time.Hour)
	clock = &later

	updated := &cryptex.Entry{
		ID:           e.ID,
		FunctionName: "fn_renamed",
		BrandingName: "brand_orig",
		PseudoCode:   "revised description",
		Category:     cryptex.CategoryScanner,
	}
	if err := r.Update(ctx, updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := r.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Update changed CreatedAt: %v vs %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("Update should advance UpdatedAt, got %v", got.UpdatedAt)
	}
	if got.FunctionName != "fn_renamed" || got.Category != cryptex.CategoryScanner {
		t.Errorf("Update not applied: %+v", got)
	}

	// The old function name must be free again; the new one resolves.
	if _, err := r.GetByFunctionName(ctx, "fn_orig"); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("old function name still indexed: %v", err)
	}
	if _, err := r.GetByFunctionName(ctx, "fn_renamed"); err != nil {
		t.Errorf("new function name not indexed: %v", err)
	}
}

func TestUpdateUniqueness(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	a := testEntry("fn_a", "brand_a")
	b := testEntry("fn_b", "brand_b")
	if err := r.Add(ctx, a); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(ctx, b); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	b.FunctionName = "fn_a"
	if err := r.Update(ctx, b); !qerrors.Is(err, qerrors.ErrDuplicate) {
		t.Errorf("renaming onto a taken function name should fail, got %v", err)
	}

	unknown := testEntry("fn_c", "brand_c")
	unknown.ID = "missing-id"
	if err := r.Update(ctx, unknown); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("updating an unknown id should fail, got %v", err)
	}
}

func TestDeleteEntry(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	e := testEntry("fn_del", "brand_del")
	if err := r.Add(ctx, e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := r.Get(ctx, e.ID); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("deleted entry still readable: %v", err)
	}
	if _, err := r.GetByFunctionName(ctx, "fn_del"); !qerrors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("deleted entry still indexed: %v", err)
	}

	// Names are free for reuse after deletion.
	if err := r.Add(ctx, testEntry("fn_del", "brand_del")); err != nil {
		t.Errorf("reusing names of a deleted entry failed: %v", err)
	}
}

func TestSearchRanking(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	entries := []*cryptex.Entry{
		{FunctionName: "late_scan_tool", BrandingName: "brand_one", PseudoCode: "x", Category: cryptex.CategoryScanner},
		{FunctionName: "scan_helper", BrandingName: "brand_two", PseudoCode: "x", Category: cryptex.CategoryScanner},
		{FunctionName: "scan", BrandingName: "brand_three", PseudoCode: "x", Category: cryptex.CategoryScanner},
		{FunctionName: "other_fn", BrandingName: "brand_four", PseudoCode: "runs a scan nightly", Category: cryptex.CategoryUtility},
	}
	for _, e := range entries {
		if err := r.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	var got []string
	for e, err := range r.Search(ctx, "scan", cryptex.CategoryAny) {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		got = append(got, e.FunctionName)
	}

	// Exact match first, then substring position (0 before 5), then
	// insertion order for equal positions.
	want := []string{"scan", "scan_helper", "late_scan_tool", "other_fn"}
	if len(got) != len(want) {
		t.Fatalf("Search returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Search order: got %v, want %v", got, want)
		}
	}
}

func TestSearchPseudoCodeOnly(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	e := &cryptex.Entry{
		FunctionName: "fn_opaque",
		BrandingName: "brand_opaque",
		PseudoCode:   "exploits the HNAP endpoint",
		Category:     cryptex.CategoryExploit,
	}
	if err := r.Add(ctx, e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	found := 0
	for hit, err := range r.Search(ctx, "hnap", cryptex.CategoryAny) {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if hit.ID != e.ID {
			t.Errorf("unexpected hit: %+v", hit)
		}
		found++
	}
	if found != 1 {
		t.Errorf("substring present only in pseudo_code should match once, got %d", found)
	}
}

func TestSearchCategoryFilter(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	scanner := &cryptex.Entry{FunctionName: "scan_a", BrandingName: "b_a", PseudoCode: "common term", Category: cryptex.CategoryScanner}
	exploit := &cryptex.Entry{FunctionName: "scan_b", BrandingName: "b_b", PseudoCode: "common term", Category: cryptex.CategoryExploit}
	for _, e := range []*cryptex.Entry{scanner, exploit} {
		if err := r.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	for e, err := range r.Search(ctx, "common", cryptex.CategoryExploit) {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if e.Category != cryptex.CategoryExploit {
			t.Errorf("category filter leaked %s", e.Category)
		}
	}
}

func TestSearchRestartable(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	for _, e := range []*cryptex.Entry{
		testEntry("fn_one", "brand_one"),
		testEntry("fn_two", "brand_two"),
	} {
		if err := r.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	seq := r.Search(ctx, "fn_", cryptex.CategoryAny)

	first := 0
	for _, err := range seq {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		first++
		break // abandon mid-iteration
	}

	second := 0
	for _, err := range seq {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		second++
	}
	if second != 2 {
		t.Errorf("re-ranging the sequence saw %d entries, want 2", second)
	}
}

func TestPopulateDefaults(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	if err := r.PopulateDefaults(ctx); err != nil {
		t.Fatalf("PopulateDefaults failed: %v", err)
	}

	e, err := r.GetByFunctionName(ctx, "util_multi_hash")
	if err != nil {
		t.Fatalf("default entry missing: %v", err)
	}
	if e.Category != cryptex.CategoryUtility {
		t.Errorf("default entry category: got %s", e.Category)
	}

	// Idempotent over an already-seeded registry.
	if err := r.PopulateDefaults(ctx); err != nil {
		t.Fatalf("second PopulateDefaults failed: %v", err)
	}

	count := 0
	for _, err := range r.Search(ctx, "", cryptex.CategoryAny) {
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		count++
	}
	if count != 11 {
		t.Errorf("seeded registry holds %d entries, want 11", count)
	}
}

func TestParseCategory(t *testing.T) {
	for name, want := range map[string]cryptex.Category{
		"exploit":    cryptex.CategoryExploit,
		"Scanner":    cryptex.CategoryScanner,
		"CREDENTIAL": cryptex.CategoryCredential,
		" utility ":  cryptex.CategoryUtility,
		"other":      cryptex.CategoryOther,
	} {
		got, err := cryptex.ParseCategory(name)
		if err != nil {
			t.Errorf("ParseCategory(%q) failed: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCategory(%q) = %s, want %s", name, got, want)
		}
	}

	if _, err := cryptex.ParseCategory("payload"); !qerrors.Is(err, qerrors.ErrValidation) {
		t.Errorf("unknown category should fail validation, got %v", err)
	}
}
