package hostsim

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/pairchat/internal/models"
)

func send(t *testing.T, h *Host, cmd models.Command) models.Envelope {
	t.Helper()
	env, err := models.NewRequest(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := env.Encode()
	if err := h.UI().Send(data); err != nil {
		t.Fatal(err)
	}
	return env
}

func readOne(t *testing.T, h *Host) models.Envelope {
	t.Helper()
	got := make(chan models.Envelope, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.UI().Receive(ctx, func(b []byte) {
		env, _ := models.Decode(b)
		got <- env
	})
	select {
	case env := <-got:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope from host")
		return models.Envelope{}
	}
}

func TestRespondEchoesID(t *testing.T) {
	h := New()
	h.Start(context.Background())
	defer h.Close()
	h.Respond(models.CmdGetUserInfo, models.UserInfo{ID: "u1"})

	req := send(t, h, models.CmdGetUserInfo)
	resp := readOne(t, h)
	if resp.ID != req.ID || resp.Command != models.CmdGetUserInfo {
		t.Errorf("response = %+v, want id %s", resp, req.ID)
	}
}

func TestHoldAndRelease(t *testing.T) {
	h := New()
	h.Start(context.Background())
	defer h.Close()
	h.Respond(models.CmdFetchFiles, []models.FileReference{})
	h.Hold()

	req := send(t, h, models.CmdFetchFiles)
	if _, ok := h.WaitFor(models.CmdFetchFiles, time.Second); !ok {
		t.Fatal("held request not recorded")
	}

	h.Release()
	resp := readOne(t, h)
	if resp.ID != req.ID {
		t.Errorf("released response id = %s, want %s", resp.ID, req.ID)
	}
}

func TestWaitForTimesOut(t *testing.T) {
	h := New()
	h.Start(context.Background())
	defer h.Close()

	if _, ok := h.WaitFor(models.CmdLogout, 20*time.Millisecond); ok {
		t.Error("WaitFor() found an envelope that was never sent")
	}
}
