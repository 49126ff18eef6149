package filetransfer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/transport"
)

type recorder struct{ sent [][]byte }

func (r *recorder) Send(data []byte, _ transport.DeliveryMode) error {
	r.sent = append(r.sent, append([]byte(nil), data...))
	return nil
}

func feed(t *testing.T, r *Receiver, write func(e *protocol.Encoder)) {
	t.Helper()
	msg := protocol.NewServerMessage(protocol.ServerFileTransfer)
	write(msg)
	_, d, err := protocol.SplitServerMessage(msg.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Handle(d); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func initiate(m protocol.FileInitiateMessage) func(*protocol.Encoder) {
	return func(e *protocol.Encoder) { m.Encode(e) }
}

func chunk(id uint8, offset uint32, data string) func(*protocol.Encoder) {
	return func(e *protocol.Encoder) {
		(&protocol.FileDataMessage{TransferID: id, Offset: offset, Data: []byte(data)}).Encode(e)
	}
}

func end(id uint8) func(*protocol.Encoder) {
	return func(e *protocol.Encoder) { protocol.EncodeFileEnd(e, id) }
}

func TestReceiveCampaignSave(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir, &recorder{})

	var finished *Transfer
	r.OnFinished(func(tr *Transfer) { finished = tr })

	feed(t, r, initiate(protocol.FileInitiateMessage{
		TransferID: 1, Kind: protocol.FileCampaignSave, FileName: "save.bin", Size: 10, SaveID: 10,
	}))
	feed(t, r, chunk(1, 0, "hello"))
	feed(t, r, chunk(1, 5, "world"))
	feed(t, r, end(1))

	if finished == nil {
		t.Fatal("OnFinished not called")
	}
	if finished.SaveID != 10 || finished.Status != Finished {
		t.Errorf("transfer = %+v", finished)
	}
	data, err := os.ReadFile(filepath.Join(dir, "save.bin"))
	if err != nil || string(data) != "helloworld" {
		t.Errorf("file = %q, %v", data, err)
	}
	if len(r.Active()) != 0 {
		t.Error("finished transfer still active")
	}
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		name  string
		steps []func(*protocol.Encoder)
		want  error
	}{
		{
			name: "chunk out of order",
			steps: []func(*protocol.Encoder){
				initiate(protocol.FileInitiateMessage{TransferID: 2, FileName: "a.sub", Size: 4}),
				chunk(2, 2, "ab"),
			},
			want: ErrOutOfOrder,
		},
		{
			name: "ended early",
			steps: []func(*protocol.Encoder){
				initiate(protocol.FileInitiateMessage{TransferID: 2, FileName: "a.sub", Size: 4}),
				chunk(2, 0, "ab"),
				end(2),
			},
			want: ErrIncomplete,
		},
		{
			name: "more than announced",
			steps: []func(*protocol.Encoder){
				initiate(protocol.FileInitiateMessage{TransferID: 2, FileName: "a.sub", Size: 1}),
				chunk(2, 0, "ab"),
			},
			want: ErrTooLarge,
		},
		{
			name: "path traversal",
			steps: []func(*protocol.Encoder){
				initiate(protocol.FileInitiateMessage{TransferID: 2, FileName: "..", Size: 1}),
			},
			want: ErrBadFileName,
		},
		{
			name: "canceled by server",
			steps: []func(*protocol.Encoder){
				initiate(protocol.FileInitiateMessage{TransferID: 2, FileName: "a.sub", Size: 1}),
				func(e *protocol.Encoder) { protocol.EncodeFileCancel(e, 2) },
			},
			want: ErrCanceledRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := NewReceiver(dir, &recorder{})
			var failed *Transfer
			r.OnTransferFailed(func(tr *Transfer) { failed = tr })

			for _, step := range tt.steps {
				feed(t, r, step)
			}

			if failed == nil {
				t.Fatal("OnTransferFailed not called")
			}
			if !errors.Is(failed.Err, tt.want) {
				t.Errorf("Err = %v, want %v", failed.Err, tt.want)
			}
			if entries, _ := os.ReadDir(dir); len(entries) != 0 {
				t.Errorf("left files behind: %v", entries)
			}
		})
	}
}

func TestRequestAndCancel(t *testing.T) {
	rec := &recorder{}
	r := NewReceiver(t.TempDir(), rec)
	r.OnTransferFailed(func(*Transfer) { t.Error("local cancel reported as failure") })

	if err := r.RequestFile(protocol.FileSubmarine, "Submarines/Dugong.sub", "abc"); err != nil {
		t.Fatal(err)
	}
	feed(t, r, initiate(protocol.FileInitiateMessage{TransferID: 3, FileName: "Dugong.sub", Size: 8}))
	feed(t, r, initiate(protocol.FileInitiateMessage{TransferID: 4, FileName: "Barsuk.sub", Size: 8}))

	r.CancelAll()
	if len(r.Active()) != 0 {
		t.Fatal("transfers still active after CancelAll")
	}

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d messages, want request + 2 cancels", len(rec.sent))
	}
	h, d, _ := protocol.SplitClientMessage(rec.sent[0])
	typ, _ := d.ReadByte()
	if h != protocol.ClientFileRequest || protocol.FileMessageType(typ) != protocol.FileRequest {
		t.Errorf("request = %s/%d", h, typ)
	}
	_, d, _ = protocol.SplitClientMessage(rec.sent[1])
	if typ, _ := d.ReadByte(); protocol.FileMessageType(typ) != protocol.FileCancel {
		t.Errorf("cancel type = %d", typ)
	}
}
