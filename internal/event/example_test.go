package event_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/event/topic"
)

// Example_basicUsage demonstrates registering a handler and emitting to it.
func Example_basicUsage() {
	em := event.New()

	_, err := em.OnFunc("user.login", func(ctx context.Context, e event.Event) error {
		fmt.Printf("login: %v\n", e.Data)
		return nil
	})
	if err != nil {
		fmt.Printf("On failed: %v\n", err)
		return
	}

	if err := em.Emit(context.Background(), "user.login", "alice"); err != nil {
		fmt.Printf("Emit failed: %v\n", err)
		return
	}

	// Output: login: alice
}

// Example_namespaces shows how emitting a parent type reaches nested types.
func Example_namespaces() {
	em := event.New()

	for _, key := range []string{"user", "user.login", "user.login.failed", "username"} {
		_, _ = em.OnFunc(topic.Topic(key), func(ctx context.Context, e event.Event) error {
			fmt.Printf("%s <- %s\n", e.Key, e.Topic)
			return nil
		})
	}

	_ = em.Emit(context.Background(), "user.login", nil)
	_ = em.Emit(context.Background(), "user", nil, event.Exact())

	// Output:
	// user.login <- user.login
	// user.login.failed <- user.login
	// user <- user
}

// Example_once demonstrates a one-shot handler.
func Example_once() {
	em := event.New()

	_, _ = em.OnceFunc("ready", func(ctx context.Context, e event.Event) error {
		fmt.Println("ready fired")
		return nil
	})

	_ = em.Emit(context.Background(), "ready", nil)
	_ = em.Emit(context.Background(), "ready", nil)

	fmt.Printf("handlers left: %d\n", em.Count())

	// Output:
	// ready fired
	// handlers left: 0
}

// Example_removeByReference removes one handler through a Listener.
func Example_removeByReference() {
	em := event.New()

	audit := event.NewListener(func(ctx context.Context, e event.Event) error {
		fmt.Println("audit")
		return nil
	})
	notify := event.NewListener(func(ctx context.Context, e event.Event) error {
		fmt.Println("notify")
		return nil
	})

	_, _ = em.On("order.paid", audit)
	_, _ = em.On("order.paid", notify)

	n, _ := em.OffHandler("order", audit)
	fmt.Printf("removed %d\n", n)

	_ = em.Emit(context.Background(), "order", nil)

	// Output:
	// removed 1
	// notify
}

// Example_failFast shows that the first failing handler stops the emit.
func Example_failFast() {
	em := event.New()
	errDenied := errors.New("denied")

	_, _ = em.OnFunc("save", func(ctx context.Context, e event.Event) error {
		return errDenied
	})
	_, _ = em.OnFunc("save", func(ctx context.Context, e event.Event) error {
		fmt.Println("not reached")
		return nil
	})

	err := em.Emit(context.Background(), "save", nil)
	fmt.Println(errors.Is(err, errDenied))

	// Output: true
}

// Example_jsonFilter filters a JSON payload with a gjson path.
func Example_jsonFilter() {
	em := event.New()

	_, _ = em.OnFunc("order", func(ctx context.Context, e event.Event) error {
		fmt.Printf("paid: %s\n", e.Data)
		return nil
	}, event.WithFilter(event.FilterJSON("status", "paid")))

	_ = em.Emit(context.Background(), "order", `{"id":1,"status":"open"}`)
	_ = em.Emit(context.Background(), "order", `{"id":2,"status":"paid"}`)

	// Output: paid: {"id":2,"status":"paid"}
}

// Widget gains the emitter API by embedding it.
type Widget struct {
	*event.Emitter
	Name string
}

func NewWidget(name string) *Widget {
	w := &Widget{Name: name}
	w.Emitter = event.New(event.WithOwner(w))
	return w
}

// Example_embedding shows a type that embeds an Emitter and is the
// receiver its handlers observe.
func Example_embedding() {
	w := NewWidget("button")

	_, _ = w.OnFunc("click", func(ctx context.Context, e event.Event) error {
		fmt.Printf("%s clicked\n", e.Receiver.(*Widget).Name)
		return nil
	})

	_ = w.Emit(context.Background(), "click", nil)

	// Output: button clicked
}
