// Package filetransfer receives files the server streams to the client:
// submarines, campaign saves and mods. Only the transfer handshake and
// bookkeeping live here; what a file contains is the caller's business.
package filetransfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

const maxFileSize = 64 << 20

var (
	ErrUnknownTransfer = errors.New("filetransfer: unknown transfer")
	ErrBadFileName     = errors.New("filetransfer: invalid file name")
	ErrOutOfOrder      = errors.New("filetransfer: chunk out of order")
	ErrTooLarge        = errors.New("filetransfer: file too large")
	ErrIncomplete      = errors.New("filetransfer: transfer ended early")
	ErrCanceledRemote  = errors.New("filetransfer: canceled by server")
)

// Status is where a transfer is.
type Status uint8

const (
	Receiving Status = iota
	Finished
	Failed
	Canceled
)

func (s Status) String() string {
	switch s {
	case Receiving:
		return "receiving"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Transfer is one inbound file.
type Transfer struct {
	ID       uint8
	Kind     protocol.FileKind
	FileName string
	Path     string // final location once finished
	Size     uint32
	Received uint32
	SaveID   protocol.SequenceID
	Status   Status
	Err      error

	file *os.File
}

func (t *Transfer) partPath() string { return t.Path + ".part" }

// Sender delivers packets to the server.
type Sender interface {
	Send(data []byte, mode transport.DeliveryMode) error
}

// Receiver tracks the client's inbound transfers. It is owned by the
// update goroutine.
type Receiver struct {
	dir    string
	send   Sender
	active map[uint8]*Transfer

	onFinished func(*Transfer)
	onFailed   func(*Transfer)
}

func NewReceiver(dir string, send Sender) *Receiver {
	return &Receiver{dir: dir, send: send, active: make(map[uint8]*Transfer)}
}

func (r *Receiver) OnFinished(fn func(*Transfer))       { r.onFinished = fn }
func (r *Receiver) OnTransferFailed(fn func(*Transfer)) { r.onFailed = fn }

// RequestFile asks the server to send a file.
func (r *Receiver) RequestFile(kind protocol.FileKind, path, hash string) error {
	msg := protocol.NewClientMessage(protocol.ClientFileRequest)
	(&protocol.FileRequestMessage{Kind: kind, Path: path, Hash: hash}).Encode(msg)
	util.LogInfo("requesting %s %q", kind, path)
	return r.send.Send(msg.Bytes(), transport.Reliable)
}

// CancelTransfer stops a transfer and tells the server.
func (r *Receiver) CancelTransfer(id uint8) {
	t, ok := r.active[id]
	if !ok {
		return
	}
	r.discard(t, Canceled, nil)

	msg := protocol.NewClientMessage(protocol.ClientFileRequest)
	protocol.EncodeFileCancel(msg, id)
	if err := r.send.Send(msg.Bytes(), transport.Reliable); err != nil {
		util.LogDebug("failed to send transfer cancel: %v", err)
	}
}

// CancelAll stops every active transfer.
func (r *Receiver) CancelAll() {
	for id := range r.active {
		r.CancelTransfer(id)
	}
}

// Active returns the transfers in progress.
func (r *Receiver) Active() []*Transfer {
	out := make([]*Transfer, 0, len(r.active))
	for _, t := range r.active {
		out = append(out, t)
	}
	return out
}

// Handle applies one FILE_TRANSFER message. Errors that concern a single
// transfer fail that transfer and are not returned; the returned error
// means the message itself could not be decoded.
func (r *Receiver) Handle(d *protocol.Decoder) error {
	typ, err := d.ReadByte()
	if err != nil {
		return err
	}

	switch protocol.FileMessageType(typ) {
	case protocol.FileInitiate:
		m, err := protocol.DecodeFileInitiate(d)
		if err != nil {
			return err
		}
		r.initiate(m)

	case protocol.FileData:
		m, err := protocol.DecodeFileData(d)
		if err != nil {
			return err
		}
		r.data(m)

	case protocol.FileEnd:
		id, err := d.ReadByte()
		if err != nil {
			return err
		}
		r.end(id)

	case protocol.FileCancel:
		id, err := d.ReadByte()
		if err != nil {
			return err
		}
		if t, ok := r.active[id]; ok {
			r.discard(t, Failed, ErrCanceledRemote)
		}

	default:
		return fmt.Errorf("filetransfer: unknown message type %d", typ)
	}
	return nil
}

func (r *Receiver) initiate(m *protocol.FileInitiateMessage) {
	if old, ok := r.active[m.TransferID]; ok {
		util.LogWarning("transfer %d restarted by server", m.TransferID)
		r.discard(old, Canceled, nil)
	}

	t := &Transfer{
		ID:       m.TransferID,
		Kind:     m.Kind,
		FileName: m.FileName,
		Size:     m.Size,
		SaveID:   m.SaveID,
	}
	r.active[t.ID] = t

	name := filepath.Base(m.FileName)
	if name == "." || name == ".." || name == string(filepath.Separator) || m.FileName == "" {
		r.discard(t, Failed, fmt.Errorf("%w: %q", ErrBadFileName, m.FileName))
		return
	}
	if m.Size > maxFileSize {
		r.discard(t, Failed, fmt.Errorf("%w: %d bytes", ErrTooLarge, m.Size))
		return
	}

	t.Path = filepath.Join(r.dir, name)
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.discard(t, Failed, err)
		return
	}
	f, err := os.Create(t.partPath())
	if err != nil {
		r.discard(t, Failed, err)
		return
	}
	t.file = f
	util.LogInfo("receiving %s %q (%d bytes)", t.Kind, name, t.Size)
}

func (r *Receiver) data(m *protocol.FileDataMessage) {
	t, ok := r.active[m.TransferID]
	if !ok {
		util.LogDebug("%v: data for %d", ErrUnknownTransfer, m.TransferID)
		return
	}
	if m.Offset != t.Received {
		r.discard(t, Failed, fmt.Errorf("%w: offset %d, have %d", ErrOutOfOrder, m.Offset, t.Received))
		return
	}
	if uint64(t.Received)+uint64(len(m.Data)) > uint64(t.Size) {
		r.discard(t, Failed, fmt.Errorf("%w: more than the announced %d bytes", ErrTooLarge, t.Size))
		return
	}
	if _, err := t.file.Write(m.Data); err != nil {
		r.discard(t, Failed, err)
		return
	}
	t.Received += uint32(len(m.Data))
}

func (r *Receiver) end(id uint8) {
	t, ok := r.active[id]
	if !ok {
		util.LogDebug("%v: end of %d", ErrUnknownTransfer, id)
		return
	}
	if t.Received != t.Size {
		r.discard(t, Failed, fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, t.Received, t.Size))
		return
	}
	if err := t.file.Close(); err != nil {
		t.file = nil
		r.discard(t, Failed, err)
		return
	}
	t.file = nil
	if err := os.Rename(t.partPath(), t.Path); err != nil {
		r.discard(t, Failed, err)
		return
	}

	delete(r.active, id)
	t.Status = Finished
	util.LogSuccess("received %s %q", t.Kind, t.FileName)
	if r.onFinished != nil {
		r.onFinished(t)
	}
}

// discard ends t without a file. Failures are reported to the failed
// callback; cancellations are not.
func (r *Receiver) discard(t *Transfer, status Status, err error) {
	delete(r.active, t.ID)
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	if t.Path != "" {
		os.Remove(t.partPath())
	}
	t.Status = status
	t.Err = err

	if status != Failed {
		util.LogInfo("transfer of %q canceled", t.FileName)
		return
	}
	util.LogWarning("transfer of %q failed: %v", t.FileName, err)
	if r.onFailed != nil {
		r.onFailed(t)
	}
}
