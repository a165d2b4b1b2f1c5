package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	signedIn bool

	calls []string
	args  []string
}

func (f *fakeExec) isSignedIn() bool { return f.signedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.signedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.signedIn = false
	return nil
}
func (f *fakeExec) List(ctx context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Add(ctx context.Context) error  { f.calls = append(f.calls, "add"); return nil }
func (f *fakeExec) Edit(ctx context.Context) error { f.calls = append(f.calls, "edit"); return nil }
func (f *fakeExec) Show(ctx context.Context) error { f.calls = append(f.calls, "show"); return nil }
func (f *fakeExec) Delete(ctx context.Context) error {
	f.calls = append(f.calls, "delete")
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error  { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) Retry(ctx context.Context) error { f.calls = append(f.calls, "retry"); return nil }
func (f *fakeExec) Search(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "search")
	f.args = args
	return nil
}
func (f *fakeExec) Filter(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "filter")
	f.args = args
	return nil
}
func (f *fakeExec) Jobs(ctx context.Context) error  { f.calls = append(f.calls, "jobs"); return nil }
func (f *fakeExec) Cards(ctx context.Context) error { f.calls = append(f.calls, "cards"); return nil }
func (f *fakeExec) AddCard(ctx context.Context) error {
	f.calls = append(f.calls, "addcard")
	return nil
}
func (f *fakeExec) DeleteCard(ctx context.Context) error {
	f.calls = append(f.calls, "delcard")
	return nil
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"add",
		"list",
		"search milk",
		"sync",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{signedIn: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"login", "add", "list", "search", "sync"}
	if len(exec.calls) < len(wantOrder) {
		t.Fatalf("few calls: %+v", exec.calls)
	}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}

	if len(exec.args) != 1 || exec.args[0] != "milk" {
		t.Fatalf("search args not forwarded: %v", exec.args)
	}
}

func TestRunREPL_BlankLinesAndQuit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("\n   \nquit\n")
	exec := &fakeExec{signedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
