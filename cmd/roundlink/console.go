package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/roundsync"
	"github.com/1ureka/roundlink/internal/util"
)

// ---------------------------------------------------------------------------
// Console screen and prompts
// ---------------------------------------------------------------------------

// console renders screen changes to the terminal. Prompts run on their own
// goroutine and answer through channels, so Update never blocks on input.
// Only one prompt reads the terminal at a time.
type console struct {
	quit     chan struct{}
	quitOnce sync.Once
	stdin    chan struct{}
}

func newConsole() *console {
	return &console{
		quit:  make(chan struct{}),
		stdin: make(chan struct{}, 1),
	}
}

// ShowMainMenu ends the program: a headless client has no menu to go back to.
func (c *console) ShowMainMenu() {
	c.quitOnce.Do(func() { close(c.quit) })
}

func (c *console) ShowLobby() {
	pterm.DefaultSection.Println("Lobby")
}

func (c *console) ShowRound() {
	pterm.DefaultSection.Println("Round")
}

func (c *console) ShowMessage(title, text string) {
	pterm.DefaultBox.WithTitle(title).Println(text)
}

func (c *console) QueuePrompt(server string, done <-chan struct{}) <-chan struct{} {
	util.LogWarning("%s is full; waiting for a free slot", server)
	cancel := make(chan struct{})
	answer := c.confirm("Server is full. Keep waiting in the queue?", done)
	go func() {
		select {
		case keep := <-answer:
			if !keep {
				close(cancel)
			}
		case <-done:
		}
	}()
	return cancel
}

func (c *console) KeepWaiting(waited time.Duration, done <-chan struct{}) <-chan bool {
	text := fmt.Sprintf("The server has not started the round after %s. Keep waiting?", waited.Round(time.Second))
	return c.confirm(text, done)
}

// confirm asks a yes/no question once the terminal is free. A question that
// becomes moot while queued is never shown; one answered after it became
// moot is dropped.
func (c *console) confirm(text string, done <-chan struct{}) <-chan bool {
	answer := make(chan bool, 1)
	go func() {
		select {
		case c.stdin <- struct{}{}:
		case <-done:
			return
		}
		defer func() { <-c.stdin }()

		select {
		case <-done:
			return
		default:
		}
		keep, err := pterm.DefaultInteractiveConfirm.
			WithDefaultText(text).
			WithDefaultValue(true).
			Show()
		if err != nil {
			util.LogWarning("prompt failed, assuming yes: %v", err)
			keep = true
		}

		select {
		case <-done:
			util.LogInfo("answer ignored: the question no longer applies")
		default:
			answer <- keep
		}
	}()
	return answer
}

// ---------------------------------------------------------------------------
// Headless world
// ---------------------------------------------------------------------------

// errNoSimulation fails every round start in this build.
var errNoSimulation = errors.New("this client has no simulation to run rounds with")

// headlessWorld knows which submarine files are present but cannot build
// rounds.
type headlessWorld struct {
	dir string
}

func newHeadlessWorld(dir string) *headlessWorld {
	return &headlessWorld{dir: dir}
}

// HasSubmarine checks that <dir>/<name>.sub exists and matches ref.Hash.
func (w *headlessWorld) HasSubmarine(ref protocol.SubmarineRef) bool {
	data, err := os.ReadFile(filepath.Join(w.dir, filepath.Base(ref.Name)+".sub"))
	if err != nil {
		return false
	}
	return ref.Hash == "" || strings.EqualFold(ref.Hash, fileHash(data))
}

func (w *headlessWorld) ConstructRound(roundsync.RoundSetup) (roundsync.Round, error) {
	return nil, errNoSimulation
}

func (w *headlessWorld) EndRound() {}

// ContentHash identifies the installed content: the sorted names of the
// files in the content directory.
func (w *headlessWorld) ContentHash() string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fileHash(nil)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return fileHash([]byte(strings.Join(names, "\n")))
}

func fileHash(data []byte) string {
	return fmt.Sprintf("%08x", util.IdentifierHash(string(data)))
}
