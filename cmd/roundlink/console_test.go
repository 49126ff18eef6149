package main

import (
	"testing"
	"time"
)

func TestConfirmSkipsMootQuestionWhileTerminalBusy(t *testing.T) {
	c := newConsole()
	c.stdin <- struct{}{} // another prompt holds the terminal

	done := make(chan struct{})
	answer := c.confirm("Keep waiting?", done)
	close(done)
	time.Sleep(20 * time.Millisecond)

	// Free the terminal; the moot question must not take it.
	<-c.stdin
	select {
	case c.stdin <- struct{}{}:
		<-c.stdin
	default:
		t.Fatal("moot question grabbed the terminal")
	}
	select {
	case keep := <-answer:
		t.Errorf("moot question answered %t", keep)
	default:
	}
}

func TestQueuePromptNotCanceledWhenDismissed(t *testing.T) {
	c := newConsole()
	c.stdin <- struct{}{}
	defer func() { <-c.stdin }()

	done := make(chan struct{})
	cancel := c.QueuePrompt("ws://test/ws", done)
	close(done)
	time.Sleep(20 * time.Millisecond)

	select {
	case <-cancel:
		t.Error("dismissed queue prompt reported a user cancel")
	default:
	}
}
