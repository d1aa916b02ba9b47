package arena

import (
	"context"
	"sync"
	"testing"

	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/wire"
)

type recordedEvent struct {
	RoomID  string
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(roomID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Event)
	}
	return out
}

type recordingSink struct {
	mu      sync.Mutex
	saves   []Snapshot
	deletes []string
}

func (s *recordingSink) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, snap)
	return nil
}

func (s *recordingSink) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, roomID)
	return nil
}

func newTestRegistry(t *testing.T, opts Options) (*Registry, *recordingBroadcaster) {
	t.Helper()
	bc := &recordingBroadcaster{}
	reg := NewRegistry(opts)
	reg.SetBroadcaster(bc)
	return reg, bc
}

func TestJoin_RoleAssignment(t *testing.T) {
	reg, bc := newTestRegistry(t, Options{})
	sess, err := reg.CreateRoom()
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	a, err := sess.Join("conn-a")
	if err != nil {
		t.Fatalf("Join a: %v", err)
	}
	if a.Role != RoleWhite || a.Rejoined || a.Started {
		t.Fatalf("unexpected first join outcome: %+v", a)
	}
	if a.Snapshot.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", a.Snapshot.Status)
	}

	b, err := sess.Join("conn-b")
	if err != nil {
		t.Fatalf("Join b: %v", err)
	}
	if b.Role != RoleBlack || !b.Started {
		t.Fatalf("unexpected second join outcome: %+v", b)
	}
	if b.Snapshot.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", b.Snapshot.Status)
	}

	c, err := sess.Join("conn-c")
	if err != nil {
		t.Fatalf("Join c: %v", err)
	}
	if c.Role != RoleObserver {
		t.Fatalf("expected observer, got %s", c.Role)
	}
	if len(c.Snapshot.Players) != 2 {
		t.Fatalf("observer join mutated players: %d", len(c.Snapshot.Players))
	}

	names := bc.names()
	if len(names) != 1 || names[0] != wire.EventGameStart {
		t.Fatalf("expected one gameStart broadcast, got %v", names)
	}
}

func TestJoin_IdempotentRejoin(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()

	first, err := sess.Join("conn-a")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	again, err := sess.Join("conn-a")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !again.Rejoined || again.Role != first.Role {
		t.Fatalf("rejoin changed role: %+v vs %+v", first, again)
	}
	if len(again.Snapshot.Players) != 1 {
		t.Fatalf("rejoin duplicated seat: %d", len(again.Snapshot.Players))
	}
}

func TestRequestMove_TurnEnforcement(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	if _, err := sess.Join("white"); err != nil {
		t.Fatalf("join white: %v", err)
	}
	if _, err := sess.Join("black"); err != nil {
		t.Fatalf("join black: %v", err)
	}

	before, _ := sess.Snapshot()
	if _, err := sess.RequestMove("black", rules.Candidate{From: "e7", To: "e5"}); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	after, _ := sess.Snapshot()
	if before.FEN != after.FEN || before.Status != after.Status {
		t.Fatalf("rejected move changed state")
	}

	out, err := sess.RequestMove("white", rules.Candidate{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if out.Status != StatusInProgress || out.Move.SAN != "e4" {
		t.Fatalf("unexpected move outcome: %+v", out)
	}

	// Same move again is now both out of turn for white and illegal for black.
	if _, err := sess.RequestMove("white", rules.Candidate{From: "e2", To: "e4"}); err != ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn for white replay, got %v", err)
	}
	if _, err := sess.RequestMove("black", rules.Candidate{From: "e2", To: "e4"}); err != ErrInvalidMove {
		t.Fatalf("expected ErrInvalidMove for black replay, got %v", err)
	}
}

func TestRequestMove_Errors(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	if _, err := sess.RequestMove("ghost", rules.Candidate{From: "e2", To: "e4"}); err != ErrPlayerNotFound {
		t.Fatalf("expected ErrPlayerNotFound for unseated conn, got %v", err)
	}

	if _, err := sess.Join("white"); err != nil {
		t.Fatalf("join: %v", err)
	}
	// With one seat filled the room still waits; moving is a seat-level failure.
	if _, err := sess.RequestMove("white", rules.Candidate{From: "e2", To: "e4"}); err != ErrPlayerNotFound {
		t.Fatalf("expected ErrPlayerNotFound while waiting, got %v", err)
	}
}

func TestRequestMove_CheckmateFinishesGame(t *testing.T) {
	reg, bc := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")

	script := []struct {
		conn string
		mv   rules.Candidate
	}{
		{"white", rules.Candidate{From: "f2", To: "f3"}},
		{"black", rules.Candidate{From: "e7", To: "e5"}},
		{"white", rules.Candidate{From: "g2", To: "g4"}},
		{"black", rules.Candidate{From: "d8", To: "h4"}},
	}
	var last MoveOutcome
	for _, step := range script {
		out, err := sess.RequestMove(step.conn, step.mv)
		if err != nil {
			t.Fatalf("RequestMove %s: %v", step.mv.UCI(), err)
		}
		last = out
	}
	if last.Status != StatusFinished || !last.Terminal.Over {
		t.Fatalf("expected finished game, got %+v", last)
	}
	if last.Terminal.Winner != "black" || last.Terminal.Reason != "checkmate" {
		t.Fatalf("unexpected terminal: %+v", last.Terminal)
	}

	// Moves after the end are rejected.
	if _, err := sess.RequestMove("white", rules.Candidate{From: "a2", To: "a3"}); err != ErrInvalidMove {
		t.Fatalf("expected ErrInvalidMove after finish, got %v", err)
	}

	names := bc.names()
	wantTail := []string{wire.EventMovePlayed, wire.EventGameOver}
	if len(names) < 2 ||
		names[len(names)-2] != wantTail[0] || names[len(names)-1] != wantTail[1] {
		t.Fatalf("expected move then gameOver at the end, got %v", names)
	}
}

func TestLeave_FinishedRoomStaysFinished(t *testing.T) {
	reg, bc := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")

	script := []struct {
		conn string
		mv   rules.Candidate
	}{
		{"white", rules.Candidate{From: "f2", To: "f3"}},
		{"black", rules.Candidate{From: "e7", To: "e5"}},
		{"white", rules.Candidate{From: "g2", To: "g4"}},
		{"black", rules.Candidate{From: "d8", To: "h4"}},
	}
	for _, step := range script {
		if _, err := sess.RequestMove(step.conn, step.mv); err != nil {
			t.Fatalf("RequestMove %s: %v", step.mv.UCI(), err)
		}
	}

	out, err := sess.Leave("white")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if out.Status != StatusFinished {
		t.Fatalf("finished room rewound to %q on leave", out.Status)
	}
	last := bc.events[len(bc.events)-1]
	left, ok := last.Payload.(wire.PlayerLeft)
	if !ok || left.Status != string(StatusFinished) {
		t.Fatalf("unexpected playerLeft payload: %+v", last.Payload)
	}

	// Filling the empty seat on a terminal position does not restart play.
	rep, err := sess.Join("white2")
	if err != nil {
		t.Fatalf("replacement join: %v", err)
	}
	if rep.Role != RoleWhite || rep.Started {
		t.Fatalf("unexpected replacement outcome: %+v", rep)
	}
	if rep.Snapshot.Status != StatusFinished {
		t.Fatalf("replacement join changed status to %q", rep.Snapshot.Status)
	}
	if names := bc.names(); names[len(names)-1] == wire.EventGameStart {
		t.Fatalf("gameStart broadcast on a finished room")
	}
	if _, err := sess.RequestMove("white2", rules.Candidate{From: "a2", To: "a3"}); err != ErrInvalidMove {
		t.Fatalf("expected ErrInvalidMove in finished room, got %v", err)
	}
}

func TestLegalMoves_Gating(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	sess.Join("white")

	// Waiting room: advisory query yields nothing.
	moves, err := sess.LegalMoves("white", "e2")
	if err != nil || moves != nil {
		t.Fatalf("expected empty result while waiting, got %v err=%v", moves, err)
	}

	sess.Join("black")

	moves, err = sess.LegalMoves("white", "e2")
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected 2 moves from e2, got %d", len(moves))
	}

	// Not black's turn: empty.
	moves, err = sess.LegalMoves("black", "e7")
	if err != nil || moves != nil {
		t.Fatalf("expected empty result out of turn, got %v err=%v", moves, err)
	}

	// Unseated connections get nothing rather than an error.
	moves, err = sess.LegalMoves("observer", "e2")
	if err != nil || moves != nil {
		t.Fatalf("expected empty result for observer, got %v err=%v", moves, err)
	}
}

func TestLeave_WaitingAndDestroy(t *testing.T) {
	sink := &recordingSink{}
	reg, bc := newTestRegistry(t, Options{Sink: sink})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")
	if _, err := sess.RequestMove("white", rules.Candidate{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	midFEN, _ := sess.Snapshot()

	out, err := sess.Leave("white")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if !out.WasPlayer || out.Color != rules.White || out.Status != StatusWaiting || out.Destroyed {
		t.Fatalf("unexpected leave outcome: %+v", out)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.FEN != midFEN.FEN {
		t.Fatalf("position was reset on single leave")
	}
	if len(snap.Players) != 1 || snap.Players[0].Color != rules.Black {
		t.Fatalf("unexpected seats after leave: %+v", snap.Players)
	}

	names := bc.names()
	if names[len(names)-1] != wire.EventPlayerLeft {
		t.Fatalf("expected playerLeft broadcast, got %v", names)
	}

	// Remaining player cannot move alone.
	if _, err := sess.RequestMove("black", rules.Candidate{From: "e7", To: "e5"}); err != ErrPlayerNotFound {
		t.Fatalf("expected ErrPlayerNotFound while waiting, got %v", err)
	}

	// A replacement player takes the white seat and resumes the position.
	rep, err := sess.Join("white2")
	if err != nil {
		t.Fatalf("replacement join: %v", err)
	}
	if rep.Role != RoleWhite || !rep.Started {
		t.Fatalf("unexpected replacement outcome: %+v", rep)
	}
	if rep.Snapshot.FEN != midFEN.FEN {
		t.Fatalf("replacement did not resume the position")
	}

	// Last leaves destroy the room.
	if _, err := sess.Leave("black"); err != nil {
		t.Fatalf("Leave black: %v", err)
	}
	last, err := sess.Leave("white2")
	if err != nil {
		t.Fatalf("Leave white2: %v", err)
	}
	if !last.Destroyed {
		t.Fatalf("expected destruction on last leave: %+v", last)
	}
	if _, err := sess.Join("late"); err != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound after destroy, got %v", err)
	}

	sink.mu.Lock()
	deletes := len(sink.deletes)
	sink.mu.Unlock()
	if deletes != 1 {
		t.Fatalf("expected one snapshot delete, got %d", deletes)
	}
}

func TestLeave_ObserverSilent(t *testing.T) {
	reg, bc := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")
	sess.Join("watcher")
	before := len(bc.names())

	out, err := sess.Leave("watcher")
	if err != nil {
		t.Fatalf("Leave observer: %v", err)
	}
	if out.WasPlayer {
		t.Fatalf("observer counted as player")
	}
	if len(bc.names()) != before {
		t.Fatalf("observer leave broadcast something")
	}
}

func TestLeave_ResetOnEmpty(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{ResetOnEmpty: true})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")
	if _, err := sess.RequestMove("white", rules.Candidate{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("RequestMove: %v", err)
	}

	sess.Leave("white")
	out, err := sess.Leave("black")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if out.Destroyed || !out.Reset {
		t.Fatalf("expected reset instead of destroy: %+v", out)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot after reset: %v", err)
	}
	if snap.FEN != rules.StartFEN || snap.Status != StatusWaiting {
		t.Fatalf("room not wound back: %+v", snap)
	}
}

func TestReplayDeterminism(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	sess, _ := reg.CreateRoom()
	sess.Join("white")
	sess.Join("black")

	script := []struct {
		conn string
		mv   rules.Candidate
	}{
		{"white", rules.Candidate{From: "e2", To: "e4"}},
		{"black", rules.Candidate{From: "e7", To: "e5"}},
		{"white", rules.Candidate{From: "g1", To: "f3"}},
		{"black", rules.Candidate{From: "b8", To: "c6"}},
		{"white", rules.Candidate{From: "f1", To: "b5"}},
	}
	for _, step := range script {
		if _, err := sess.RequestMove(step.conn, step.mv); err != nil {
			t.Fatalf("RequestMove %s: %v", step.mv.UCI(), err)
		}
	}
	live, _ := sess.Snapshot()

	// The same sequence applied directly to the engine lands on the same
	// position.
	fen := rules.StartFEN
	for _, step := range script {
		res, err := rules.Apply(fen, step.mv)
		if err != nil || !res.Accepted {
			t.Fatalf("Apply %s: err=%v accepted=%v", step.mv.UCI(), err, res.Accepted)
		}
		fen = res.FEN
	}
	if fen != live.FEN {
		t.Fatalf("replay diverged:\n  session: %s\n  replay:  %s", live.FEN, fen)
	}
}
