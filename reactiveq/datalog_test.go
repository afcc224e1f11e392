package reactiveq

import (
	"context"
	"sync"
	"testing"

	"devt.de/krotik/reactiveq/topicmatch"
)

/*
TestSwapDatalogCacheDelaySingleFlight walks spec.md §8's single-flight
law: two concurrent swaps for the same key both observe the same
winning delay.
*/
func TestSwapDatalogCacheDelaySingleFlight(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := "[[:ea ?e :title ?v]]"

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	delays := []interface{}{"d1", "d2"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := s.SwapDatalogCacheDelay(ctx, "A", query, delays[i])
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	if results[0] != results[1] {
		t.Errorf("expected both callers to observe the same delay, got %v and %v", results[0], results[1])
	}
	if results[0] != "d1" && results[0] != "d2" {
		t.Errorf("unexpected winning delay %v", results[0])
	}
}

func TestSwapDatalogCacheDelayStable(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := "[[:ea ?e :title ?v]]"

	first, err := s.SwapDatalogCacheDelay(ctx, "A", query, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if first != "d1" {
		t.Fatalf("expected d1, got %v", first)
	}

	second, err := s.SwapDatalogCacheDelay(ctx, "A", query, "d2")
	if err != nil {
		t.Fatal(err)
	}
	if second != "d1" {
		t.Errorf("expected the already-installed delay d1 to win, got %v", second)
	}
}

func TestRecordDatalogQueryStartKeepsExistingTopics(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := map[string]interface{}{"todos": map[string]interface{}{}}
	dq := "[[:ea ?e :title ?v]]"
	v, _ := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)

	coarse := []topicmatch.Topic{{topicmatch.KeywordPart(":ea"), topicmatch.WildcardPart()}}

	e1, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq, V: v,
	}, coarse)
	if err != nil {
		t.Fatal(err)
	}
	if e1.Attr(AttrDQCreatedAt) == nil {
		t.Error("expected created_at to be stamped on first insert")
	}

	other := []topicmatch.Topic{{topicmatch.KeywordPart(":ea"), topicmatch.KeywordPart(":body")}}
	e2, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq, V: v,
	}, other)
	if err != nil {
		t.Fatal(err)
	}

	topics, _ := e2.Attr(AttrDQTopics).([]topicmatch.Topic)
	if len(topics) != len(coarse) || topics[0][1].Kind != topicmatch.Wildcard {
		t.Errorf("expected the first coarse topics to stick, got %v", topics)
	}
	if e2.Attr(AttrDQCreatedAt) != e1.Attr(AttrDQCreatedAt) {
		t.Error("expected created_at to be stamped only once")
	}
}

func TestRecordDatalogQueryFinishUpdatesTopicsAndEvalCount(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	ctx := context.Background()
	query := map[string]interface{}{"todos": map[string]interface{}{}}
	dq := "[[:ea ?e :title ?v]]"
	v, _ := s.BumpInstaqlVersion(ctx, "S1", query, ReturnJoinRows)

	coarse := []topicmatch.Topic{{topicmatch.KeywordPart(":ea"), topicmatch.WildcardPart()}}
	if _, err := s.RecordDatalogQueryStart(ctx, DatalogCtx{
		AppID: "A", SessionID: "S1", InstaqlQuery: query, Query: dq, V: v,
	}, coarse); err != nil {
		t.Fatal(err)
	}

	refined := []topicmatch.Topic{{topicmatch.KeywordPart(":ea"), topicmatch.SetPart("e1")}}
	if err := s.RecordDatalogQueryFinish(ctx, "A", dq, refined); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDatalogQueryFinish(ctx, "A", dq, refined); err != nil {
		t.Fatal(err)
	}

	e, ok := s.db.Snapshot().Entity(entityByKeyDatalog("A", dq))
	if !ok {
		t.Fatal("expected datalog query to exist")
	}
	if count, _ := e.Attr(AttrDQEvalCount).(int64); count != 2 {
		t.Errorf("expected eval_count 2, got %d", count)
	}
	topics, _ := e.Attr(AttrDQTopics).([]topicmatch.Topic)
	if len(topics) != len(refined) || topics[0][1].Kind != topicmatch.Set {
		t.Errorf("expected topics to be replaced with the refined set, got %v", topics)
	}
}

func TestRecordDatalogQueryFinishNoopIfMissing(t *testing.T) {
	s := NewStore()
	defer s.Stop()

	err := s.RecordDatalogQueryFinish(context.Background(), "A", "never-started", nil)
	if err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}
