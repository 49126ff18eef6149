package protocol

import "fmt"

// FileKind classifies transferable files.
type FileKind uint8

const (
	FileSubmarine FileKind = iota + 1
	FileCampaignSave
	FileMod
)

func (k FileKind) String() string {
	switch k {
	case FileSubmarine:
		return "Submarine"
	case FileCampaignSave:
		return "CampaignSave"
	case FileMod:
		return "Mod"
	default:
		return fmt.Sprintf("FileKind(%d)", uint8(k))
	}
}

// FileMessageType is the sub-opcode of FILE_TRANSFER / FILE_REQUEST messages.
type FileMessageType uint8

const (
	FileRequest FileMessageType = iota + 1 // client → server
	FileCancel                             // both directions
	FileInitiate                           // server → client
	FileData                               // server → client
	FileEnd                                // server → client
)

// FileRequestMessage asks the server for a file.
type FileRequestMessage struct {
	Kind FileKind
	Path string
	Hash string
}

func (m *FileRequestMessage) Encode(e *Encoder) {
	e.WriteByte(byte(FileRequest))
	e.WriteByte(byte(m.Kind))
	e.WriteString(m.Path)
	e.WriteString(m.Hash)
}

// FileInitiateMessage announces a transfer. SaveID is only meaningful for
// campaign saves.
type FileInitiateMessage struct {
	TransferID uint8
	Kind       FileKind
	FileName   string
	Size       uint32
	SaveID     SequenceID
}

func (m *FileInitiateMessage) Encode(e *Encoder) {
	e.WriteByte(byte(FileInitiate))
	e.WriteByte(m.TransferID)
	e.WriteByte(byte(m.Kind))
	e.WriteString(m.FileName)
	e.WriteUint32(m.Size)
	e.WriteUint16(uint16(m.SaveID))
}

func DecodeFileInitiate(d *Decoder) (*FileInitiateMessage, error) {
	m := &FileInitiateMessage{}
	var err error
	if m.TransferID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Kind = FileKind(kind)
	if m.FileName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Size, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	save, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.SaveID = SequenceID(save)
	return m, nil
}

// FileDataMessage carries one chunk of a transfer.
type FileDataMessage struct {
	TransferID uint8
	Offset     uint32
	Data       []byte
}

func (m *FileDataMessage) Encode(e *Encoder) {
	e.WriteByte(byte(FileData))
	e.WriteByte(m.TransferID)
	e.WriteUint32(m.Offset)
	e.WriteLenBytes(m.Data)
}

func DecodeFileData(d *Decoder) (*FileDataMessage, error) {
	m := &FileDataMessage{}
	var err error
	if m.TransferID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if m.Offset, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if m.Data, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeFileEnd and EncodeFileCancel write the single-field messages.
func EncodeFileEnd(e *Encoder, transferID uint8) {
	e.WriteByte(byte(FileEnd))
	e.WriteByte(transferID)
}

func EncodeFileCancel(e *Encoder, transferID uint8) {
	e.WriteByte(byte(FileCancel))
	e.WriteByte(transferID)
}
