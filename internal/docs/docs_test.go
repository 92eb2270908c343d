package docs

import (
	"reflect"
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	want := []string{"editing", "export", "keys", "query"}
	if got := Topics(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Topics() = %v; want %v", got, want)
	}
}

func TestGet(t *testing.T) {
	body, ok := Get(" Query ")
	if !ok || !strings.HasPrefix(body, "# ") {
		t.Fatalf("expected query topic; got ok=%v body=%q", ok, body)
	}
	for _, topic := range []string{"", "nope", "../docs"} {
		if _, ok := Get(topic); ok {
			t.Fatalf("expected %q to be unknown", topic)
		}
	}
}
