package reactiveq

import (
	"context"
	"testing"

	"devt.de/krotik/reactiveq/entitydb"
	"devt.de/krotik/reactiveq/topicmatch"
)

func strPtr(s string) *string { return &s }

func entityByKeyDatalog(appID string, query interface{}) entitydb.Lookup {
	return entitydb.ByKey(KindDatalogQuery, appID, query)
}

func entityByKeyInstaql(sessionID string, query interface{}) entitydb.Lookup {
	return entitydb.ByKey(KindInstaqlQuery, sessionID, query)
}

func TestBumpInstaqlVersionMonotonic(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := map[string]interface{}{"todos": map[string]interface{}{}}

	v1, err := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)
	if err != nil || v1 != 1 {
		t.Fatalf("expected version 1, got %d, err %v", v1, err)
	}

	v2, err := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)
	if err != nil || v2 != 2 {
		t.Fatalf("expected version 2, got %d, err %v", v2, err)
	}
}

/*
TestCreateRefreshCycle walks spec.md §8 scenario 1 end to end.
*/
func TestCreateRefreshCycle(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	sock := &fakeSocket{}

	if err := s.AddSocket(ctx, "S1", sock); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSessionProps(ctx, "S1", SessionProps{
		Auth:    &Auth{App: "A", User: "u"},
		Creator: &User{ID: "owner"},
	}); err != nil {
		t.Fatal(err)
	}

	query := map[string]interface{}{"todos": map[string]interface{}{}}

	v, err := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)
	if err != nil || v != 1 {
		t.Fatalf("expected version 1, got %d, err %v", v, err)
	}

	dq1 := "[[:ea ?e :title ?v]]"
	coarse := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.WildcardPart(),
		topicmatch.KeywordPart(":title"),
	}}

	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq1, V: v,
	}, coarse); err != nil {
		t.Fatal(err)
	}

	refined := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.SetPart("e1"),
		topicmatch.KeywordPart(":title"),
	}}

	if err := s.RecordDatalogQueryFinish(ctx, "A", dq1, refined); err != nil {
		t.Fatal(err)
	}

	result, err := s.AddInstaqlQuery(ctx, InstaqlCtx{SessionID: "S1", Query: query, V: v}, strPtr("h1"))
	if err != nil {
		t.Fatal(err)
	}
	if !result.ResultChanged {
		t.Error("expected result_changed=true on first evaluation")
	}

	ivTopics := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.SetPart("e1"),
		topicmatch.KeywordPart(":title"),
	}}

	inval, err := s.MarkStaleTopics(ctx, "A", 10, ivTopics)
	if err != nil {
		t.Fatal(err)
	}
	if len(inval.AffectedSessionIDs) != 1 || inval.AffectedSessionIDs[0] != "S1" {
		t.Errorf("expected [S1], got %v", inval.AffectedSessionIDs)
	}

	snap := s.db.Snapshot()
	if _, ok := snap.Entity(entityByKeyDatalog("A", dq1)); ok {
		t.Error("expected DQ1 to be gone")
	}

	iq, ok := snap.Entity(entityByKeyInstaql("S1", query))
	if !ok {
		t.Fatal("expected instaql query to still exist")
	}
	if stale, _ := iq.Attr(AttrIQStale).(bool); !stale {
		t.Error("expected instaql query to be marked stale")
	}
}

/*
TestStaleSubscriptionEviction walks spec.md §8 scenario 2.
*/
func TestStaleSubscriptionEviction(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := map[string]interface{}{"todos": map[string]interface{}{}}
	dq1 := "[[:ea ?e :title ?v]]"

	v1, _ := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)
	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq1, V: v1,
	}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInstaqlQuery(ctx, InstaqlCtx{SessionID: "S1", Query: query, V: v1}, strPtr("h1")); err != nil {
		t.Fatal(err)
	}

	v2, err := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)
	if err != nil || v2 != 2 {
		t.Fatalf("expected version 2, got %d, err %v", v2, err)
	}

	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq1, V: v2,
	}, nil); err != nil {
		t.Fatal(err)
	}

	result, err := s.AddInstaqlQuery(ctx, InstaqlCtx{SessionID: "S1", Query: query, V: v2}, strPtr("h1"))
	if err != nil {
		t.Fatal(err)
	}
	if result.ResultChanged {
		t.Error("expected result_changed=false: same hash as before")
	}

	for _, sub := range s.db.Snapshot().Kind(KindSubscription) {
		if v, _ := sub.Attr(AttrSubVersion).(int64); v < v2 {
			t.Errorf("expected stale v:%d subscription to be retracted", v)
		}
	}
}

/*
TestSessionTeardownCascade walks spec.md §8 scenario 3.
*/
func TestSessionTeardownCascade(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query1 := map[string]interface{}{"todos": map[string]interface{}{}}
	query2 := map[string]interface{}{"goals": map[string]interface{}{}}
	dq := "shared-dq"

	for _, sid := range []string{"S1", "S2"} {
		if err := s.AddSocket(ctx, sid, &fakeSocket{}); err != nil {
			t.Fatal(err)
		}
	}

	v1, _ := s.BumpInstaqlVersion(ctx, "S1", query1, ReturnJoinRows)
	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query1, Query: dq, V: v1,
	}, nil); err != nil {
		t.Fatal(err)
	}

	v2, _ := s.BumpInstaqlVersion(ctx, "S2", query2, ReturnJoinRows)
	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S2", InstaqlQuery: query2, Query: dq, V: v2,
	}, nil); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveSession(ctx, "S1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.db.Snapshot().Entity(entityByKeyDatalog("A", dq)); !ok {
		t.Error("expected shared datalog query to survive S1's removal")
	}

	if err := s.RemoveSession(ctx, "S2"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.db.Snapshot().Entity(entityByKeyDatalog("A", dq)); ok {
		t.Error("expected datalog query to be swept after last referrer removed")
	}
}
