package pagetree

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseOrderPayload(t *testing.T) {
	valid := fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":0},{"id":%q,"parentId":%q,"sortOrder":1}]`,
		pid(1), pid(2), pid(1))

	entries, err := ParseOrderPayload([]byte(valid))
	if err != nil {
		t.Fatalf("ParseOrderPayload(valid): %v", err)
	}
	if len(entries) != 2 || entries[1].ParentID == nil || *entries[1].ParentID != pid(1) || entries[1].SortOrder != 1 {
		t.Errorf("entries = %+v", entries)
	}

	invalid := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "whitespace", payload: "  \n"},
		{name: "not json", payload: "not json"},
		{name: "json string", payload: `"just a string"`},
		{name: "json object", payload: `{"id":"x"}`},
		{name: "empty list", payload: `[]`},
		{name: "null", payload: `null`},
		{name: "bad uuid", payload: `[{"id":"nope","parentId":null,"sortOrder":0}]`},
		{name: "missing id", payload: `[{"parentId":null,"sortOrder":0}]`},
		{name: "unknown field", payload: fmt.Sprintf(`[{"id":%q,"parent":null,"sortOrder":0}]`, pid(1))},
		{name: "trailing data", payload: fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":0}] []`, pid(1))},
		{name: "duplicate id", payload: fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":0},{"id":%q,"parentId":null,"sortOrder":1}]`, pid(1), pid(1))},
		{name: "own parent", payload: fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0}]`, pid(1), pid(1))},
		{name: "negative sort order", payload: fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":-1}]`, pid(1))},
		{name: "string sort order", payload: fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":"1"}]`, pid(1))},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderPayload([]byte(tt.payload))
			if !errors.Is(err, ErrInvalidOrderPayload) {
				t.Fatalf("err = %v, want ErrInvalidOrderPayload", err)
			}
			var perr *OrderPayloadError
			if !errors.As(err, &perr) || perr.Reason == "" {
				t.Errorf("err = %#v, want *OrderPayloadError with a reason", err)
			}
		})
	}
}

func TestSavePageOrder(t *testing.T) {
	ctx := context.Background()
	m := homeAboutTeam(t)
	svc := NewService(m, []string{"en", "fa"})

	payload := fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0},{"id":%q,"parentId":%q,"sortOrder":1}]`,
		pid(3), pid(1), pid(2), pid(1))

	res, err := svc.SavePageOrder(ctx, []byte(payload))
	if err != nil {
		t.Fatalf("SavePageOrder: %v", err)
	}

	if got, want := shape(res.Tree), "home(team,about)"; got != want {
		t.Errorf("tree = %q, want %q", got, want)
	}
	if res.Paths != (BatchResult{SuccessCount: 3}) {
		t.Errorf("paths = %+v, want 3 successes", res.Paths)
	}
	for n, path := range map[int]string{1: "home", 2: "home/about", 3: "home/team"} {
		if got := fullPath(t, m, n); got != path {
			t.Errorf("page %d full path = %q, want %q", n, got, path)
		}
	}
}

func TestSavePageOrderMalformedPayloadWritesNothing(t *testing.T) {
	m := homeAboutTeam(t)
	svc := NewService(m, nil)

	_, err := svc.SavePageOrder(context.Background(), []byte("not json"))
	if !errors.Is(err, ErrInvalidOrderPayload) {
		t.Fatalf("err = %v, want ErrInvalidOrderPayload", err)
	}
	if m.WriteCount() != 0 {
		t.Errorf("WriteCount = %d, want 0", m.WriteCount())
	}
}

func TestSavePageOrderRejectsCycle(t *testing.T) {
	ctx := context.Background()
	m := homeAboutTeam(t)
	svc := NewService(m, nil)

	payload := fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0}]`, pid(1), pid(3))

	_, err := svc.SavePageOrder(ctx, []byte(payload))
	if !errors.Is(err, ErrParentCycle) {
		t.Fatalf("err = %v, want ErrParentCycle", err)
	}
	if m.WriteCount() != 0 {
		t.Errorf("WriteCount = %d, want 0", m.WriteCount())
	}
	home, _ := m.FindPageByID(ctx, pid(1))
	if home.ParentID != nil {
		t.Errorf("home parent = %v, want nil", home.ParentID)
	}
}

func TestSavePageOrderUnknownPage(t *testing.T) {
	ctx := context.Background()
	m := homeAboutTeam(t)
	svc := NewService(m, nil)

	payload := fmt.Sprintf(`[{"id":%q,"parentId":null,"sortOrder":0},{"id":%q,"parentId":null,"sortOrder":1}]`,
		pid(3), pid(42))
	if _, err := svc.SavePageOrder(ctx, []byte(payload)); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("err = %v, want ErrPageNotFound", err)
	}

	payload = fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0}]`, pid(3), pid(42))
	if _, err := svc.SavePageOrder(ctx, []byte(payload)); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound", err)
	}

	if got := fullPath(t, m, 3); got != "home/about/team" {
		t.Errorf("team full path = %q, want unchanged", got)
	}
}

func TestSavePageOrderParentOutsideTree(t *testing.T) {
	ctx := context.Background()
	m := homeAboutTeam(t)
	m.Seed(page(4, "ghost", ref(999), 0, "ghost"))
	svc := NewService(m, nil)

	payload := fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0}]`, pid(3), pid(4))
	if _, err := svc.SavePageOrder(ctx, []byte(payload)); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound", err)
	}
	if m.WriteCount() != 0 {
		t.Errorf("WriteCount = %d, want 0", m.WriteCount())
	}
	if got := fullPath(t, m, 3); got != "home/about/team" {
		t.Errorf("team full path = %q, want unchanged", got)
	}

	// Bringing the orphan back into the tree in the same save makes it a
	// valid parent.
	payload = fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":1},{"id":%q,"parentId":%q,"sortOrder":0}]`,
		pid(4), pid(1), pid(3), pid(4))
	if _, err := svc.SavePageOrder(ctx, []byte(payload)); err != nil {
		t.Fatalf("SavePageOrder: %v", err)
	}
	for n, path := range map[int]string{4: "home/ghost", 3: "home/ghost/team"} {
		if got := fullPath(t, m, n); got != path {
			t.Errorf("page %d full path = %q, want %q", n, got, path)
		}
	}
}

func TestSavePageOrderRollsBackOnPathFailure(t *testing.T) {
	ctx := context.Background()
	m := homeAboutTeam(t)
	m.FailFullPathUpdate(pid(2), errors.New("connection reset"))
	svc := NewService(m, nil)

	payload := fmt.Sprintf(`[{"id":%q,"parentId":%q,"sortOrder":0},{"id":%q,"parentId":%q,"sortOrder":1}]`,
		pid(3), pid(1), pid(2), pid(1))

	_, err := svc.SavePageOrder(ctx, []byte(payload))
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("err = %v, want *BatchError", err)
	}
	if batchErr.Failed != 1 || batchErr.Total != 3 {
		t.Errorf("BatchError = %+v, want 1 of 3", batchErr)
	}

	team, _ := m.FindPageByID(ctx, pid(3))
	if team.ParentID == nil || *team.ParentID != pid(2) {
		t.Errorf("team parent = %v, want placement rolled back to about", team.ParentID)
	}
	if team.FullPath != "home/about/team" {
		t.Errorf("team full path = %q, want rolled back", team.FullPath)
	}
	if m.WriteCount() != 0 {
		t.Errorf("WriteCount = %d, want 0 after rollback", m.WriteCount())
	}
}
