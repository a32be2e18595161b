package queue

import (
	"testing"
	"time"
)

func TestFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Pop(time.Second)
		if !ok || v != i {
			t.Fatalf("pop %d: got (%d, %v)", i, v, ok)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, len=%d", q.Len())
	}
}

func TestPopTimeout(t *testing.T) {
	q := New[string]()
	start := time.Now()
	_, ok := q.Pop(50 * time.Millisecond)
	if ok {
		t.Fatal("pop on empty queue must time out")
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("pop returned before the timeout")
	}
}

func TestPopWaitsForPush(t *testing.T) {
	q := New[string]()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("block")
	}()
	v, ok := q.Pop(2 * time.Second)
	if !ok || v != "block" {
		t.Fatalf("got (%q, %v)", v, ok)
	}
}

func TestCloseWakesWaiter(t *testing.T) {
	q := New[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(10 * time.Second)
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("pop after close on empty queue must report !ok")
		}
	case <-time.After(time.Second):
		t.Fatal("close did not wake the waiter")
	}
	if !q.Closed() {
		t.Error("Closed() must report true")
	}
}

func TestDrainAfterClose(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Close()
	if v, ok := q.Pop(time.Second); !ok || v != 1 {
		t.Errorf("queued items must remain poppable after close: (%d, %v)", v, ok)
	}
	if _, ok := q.Pop(50 * time.Millisecond); ok {
		t.Error("drained closed queue must report !ok")
	}
}
