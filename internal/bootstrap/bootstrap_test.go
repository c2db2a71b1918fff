package bootstrap

import "testing"

func TestCloseRunsClosersInReverseOnce(t *testing.T) {
	var order []string
	app := &App{}
	app.OnClose(func() { order = append(order, "neo4j") })
	app.OnClose(func() { order = append(order, "postgres") })
	app.OnClose(func() { order = append(order, "nats") })

	app.Close()
	app.Close()

	want := []string{"nats", "postgres", "neo4j"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}
