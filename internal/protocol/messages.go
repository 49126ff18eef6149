package protocol

import (
	"sort"
)

// Collection limits for decoded messages.
const (
	maxClients      = 255
	maxMissions     = 64
	maxLevelStages  = 256
	maxPreload      = 4096
	maxCampaignFlag = 32
)

// SubmarineRef identifies a submarine file by name and content hash.
// The zero value means "none".
type SubmarineRef struct {
	Name string
	Hash string
}

func (r SubmarineRef) IsZero() bool { return r.Name == "" }

func (r SubmarineRef) encode(e *Encoder) {
	e.WriteString(r.Name)
	e.WriteString(r.Hash)
}

func decodeSubmarineRef(d *Decoder) (SubmarineRef, error) {
	var r SubmarineRef
	var err error
	if r.Name, err = d.ReadString(); err != nil {
		return r, err
	}
	if r.Hash, err = d.ReadString(); err != nil {
		return r, err
	}
	return r, nil
}

// CampaignFlag names an independently versioned part of campaign state.
type CampaignFlag uint8

const (
	CampaignMap CampaignFlag = iota + 1
	CampaignMissions
	CampaignCharacterData
	CampaignItemData
	CampaignUpgrades
)

// UpdateIDs maps each campaign flag to the id of its last applied update.
type UpdateIDs map[CampaignFlag]SequenceID

func (u UpdateIDs) encode(e *Encoder) {
	flags := make([]int, 0, len(u))
	for f := range u {
		flags = append(flags, int(f))
	}
	sort.Ints(flags)

	e.WriteUvarint(uint64(len(flags)))
	for _, f := range flags {
		e.WriteByte(byte(f))
		e.WriteUint16(uint16(u[CampaignFlag(f)]))
	}
}

func decodeUpdateIDs(d *Decoder) (UpdateIDs, error) {
	n, err := d.readCount(maxCampaignFlag)
	if err != nil {
		return nil, err
	}
	u := make(UpdateIDs, n)
	for i := 0; i < n; i++ {
		f, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		id, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		u[CampaignFlag(f)] = SequenceID(id)
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Round start
// ---------------------------------------------------------------------------

// QueryStartGame is the server's readiness probe sent before STARTGAME.
type QueryStartGame struct {
	Submarine      SubmarineRef
	Shuttle        SubmarineRef
	EnemySubmarine SubmarineRef
	IsCampaign     bool
	CampaignID     uint8
	SaveID         SequenceID
	UpdateIDs      UpdateIDs
}

func (m *QueryStartGame) Encode(e *Encoder) {
	m.Submarine.encode(e)
	m.Shuttle.encode(e)
	m.EnemySubmarine.encode(e)
	e.WriteBool(m.IsCampaign)
	e.WriteByte(m.CampaignID)
	e.WriteUint16(uint16(m.SaveID))
	m.UpdateIDs.encode(e)
}

func DecodeQueryStartGame(d *Decoder) (*QueryStartGame, error) {
	m := &QueryStartGame{}
	var err error
	if m.Submarine, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.Shuttle, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.EnemySubmarine, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.IsCampaign, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if m.CampaignID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	save, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.SaveID = SequenceID(save)
	if m.UpdateIDs, err = decodeUpdateIDs(d); err != nil {
		return nil, err
	}
	return m, nil
}

// RoundFlags carries the ruleset switches of a round.
type RoundFlags uint8

const (
	FlagAllowRespawn RoundFlags = 1 << iota
	FlagFriendlyFire
	FlagAllowRagdoll
	FlagDisembarkPerks
)

func (f RoundFlags) Has(flag RoundFlags) bool { return f&flag != 0 }

// StartGame is the full STARTGAME payload.
type StartGame struct {
	Seed      int32
	LevelSeed string
	ModeID    string
	Flags     RoundFlags
	RoundID   uint32

	IsCampaign bool

	// Non-campaign rounds.
	Submarine      SubmarineRef
	Shuttle        SubmarineRef
	EnemySubmarine SubmarineRef
	MissionHashes  []uint32

	// Campaign rounds.
	CampaignID        uint8
	SaveID            SequenceID
	NextLocationIndex int32
	ConnectionIndex   int32
}

func (m *StartGame) Encode(e *Encoder) {
	e.WriteInt32(m.Seed)
	e.WriteString(m.LevelSeed)
	e.WriteString(m.ModeID)
	e.WriteByte(byte(m.Flags))
	e.WriteUint32(m.RoundID)
	e.WriteBool(m.IsCampaign)

	if m.IsCampaign {
		e.WriteByte(m.CampaignID)
		e.WriteUint16(uint16(m.SaveID))
		e.WriteInt32(m.NextLocationIndex)
		e.WriteInt32(m.ConnectionIndex)
		return
	}

	m.Submarine.encode(e)
	m.Shuttle.encode(e)
	m.EnemySubmarine.encode(e)
	writeHashes(e, m.MissionHashes)
}

func DecodeStartGame(d *Decoder) (*StartGame, error) {
	m := &StartGame{}
	var err error
	if m.Seed, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if m.LevelSeed, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.ModeID, err = d.ReadString(); err != nil {
		return nil, err
	}
	flags, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Flags = RoundFlags(flags)
	if m.RoundID, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if m.IsCampaign, err = d.ReadBool(); err != nil {
		return nil, err
	}

	if m.IsCampaign {
		if m.CampaignID, err = d.ReadByte(); err != nil {
			return nil, err
		}
		save, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		m.SaveID = SequenceID(save)
		if m.NextLocationIndex, err = d.ReadInt32(); err != nil {
			return nil, err
		}
		if m.ConnectionIndex, err = d.ReadInt32(); err != nil {
			return nil, err
		}
		return m, nil
	}

	if m.Submarine, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.Shuttle, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.EnemySubmarine, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.MissionHashes, err = readHashes(d); err != nil {
		return nil, err
	}
	return m, nil
}

// MissionState is per-mission initial state delivered with FINALIZE.
type MissionState struct {
	Index uint8
	Data  []byte
}

// StartGameFinalize is the STARTGAMEFINALIZE payload.
type StartGameFinalize struct {
	RoundID           uint32
	Preload           []string
	SubmarineChecksum uint32
	MissionHashes     []uint32
	LevelStages       map[string]uint32
	MissionStates     []MissionState
	CrewOrders        []byte // nil when the server sent none
	DisembarkPerks    bool
}

func (m *StartGameFinalize) Encode(e *Encoder) {
	e.WriteUint32(m.RoundID)

	e.WriteUvarint(uint64(len(m.Preload)))
	for _, id := range m.Preload {
		e.WriteString(id)
	}

	e.WriteUint32(m.SubmarineChecksum)
	writeHashes(e, m.MissionHashes)

	keys := make([]string, 0, len(m.LevelStages))
	for k := range m.LevelStages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		e.WriteUint32(m.LevelStages[k])
	}

	e.WriteUvarint(uint64(len(m.MissionStates)))
	for _, s := range m.MissionStates {
		e.WriteByte(s.Index)
		e.WriteLenBytes(s.Data)
	}

	e.WriteBool(m.CrewOrders != nil)
	if m.CrewOrders != nil {
		e.WriteLenBytes(m.CrewOrders)
	}
	e.WriteBool(m.DisembarkPerks)
}

func DecodeStartGameFinalize(d *Decoder) (*StartGameFinalize, error) {
	m := &StartGameFinalize{}
	var err error
	if m.RoundID, err = d.ReadUint32(); err != nil {
		return nil, err
	}

	n, err := d.readCount(maxPreload)
	if err != nil {
		return nil, err
	}
	m.Preload = make([]string, n)
	for i := range m.Preload {
		if m.Preload[i], err = d.ReadString(); err != nil {
			return nil, err
		}
	}

	if m.SubmarineChecksum, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if m.MissionHashes, err = readHashes(d); err != nil {
		return nil, err
	}

	if n, err = d.readCount(maxLevelStages); err != nil {
		return nil, err
	}
	m.LevelStages = make(map[string]uint32, n)
	for i := 0; i < n; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		m.LevelStages[k] = v
	}

	if n, err = d.readCount(maxMissions); err != nil {
		return nil, err
	}
	m.MissionStates = make([]MissionState, n)
	for i := range m.MissionStates {
		if m.MissionStates[i].Index, err = d.ReadByte(); err != nil {
			return nil, err
		}
		if m.MissionStates[i].Data, err = d.ReadLenBytes(); err != nil {
			return nil, err
		}
	}

	hasOrders, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasOrders {
		if m.CrewOrders, err = d.ReadLenBytes(); err != nil {
			return nil, err
		}
	}
	if m.DisembarkPerks, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return m, nil
}

func writeHashes(e *Encoder, hashes []uint32) {
	e.WriteUvarint(uint64(len(hashes)))
	for _, h := range hashes {
		e.WriteUint32(h)
	}
}

func readHashes(d *Decoder) ([]uint32, error) {
	n, err := d.readCount(maxMissions)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = d.ReadUint32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Permission is a bit in the client's permission mask.
type Permission uint16

const (
	PermissionEndRound Permission = 1 << iota
	PermissionKick
	PermissionBan
	PermissionSelectSubmarine
	PermissionSelectMode
	PermissionManageCampaign
	PermissionConsoleCommands
)

func (p Permission) Has(perm Permission) bool { return p&perm == perm }

// JoinRequest is the first message the client sends on a new connection.
type JoinRequest struct {
	Name            string
	ProtocolVersion uint16
	ContentHash     string
	Nonce           string
	ContentVerified bool
}

func (m *JoinRequest) Encode(e *Encoder) {
	e.WriteString(m.Name)
	e.WriteUint16(m.ProtocolVersion)
	e.WriteString(m.ContentHash)
	e.WriteString(m.Nonce)
	e.WriteBool(m.ContentVerified)
}

func DecodeJoinRequest(d *Decoder) (*JoinRequest, error) {
	m := &JoinRequest{}
	var err error
	if m.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.ProtocolVersion, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if m.ContentHash, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Nonce, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.ContentVerified, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return m, nil
}

// JoinAccepted approves a join request.
type JoinAccepted struct {
	ClientID    uint8
	ServerName  string
	Permissions Permission
}

func (m *JoinAccepted) Encode(e *Encoder) {
	e.WriteByte(m.ClientID)
	e.WriteString(m.ServerName)
	e.WriteUint16(uint16(m.Permissions))
}

func DecodeJoinAccepted(d *Decoder) (*JoinAccepted, error) {
	m := &JoinAccepted{}
	var err error
	if m.ClientID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if m.ServerName, err = d.ReadString(); err != nil {
		return nil, err
	}
	perms, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.Permissions = Permission(perms)
	return m, nil
}

// ServerCommand is a permission-scoped request the client sends to the server.
type ServerCommand struct {
	Permission Permission
	Op         uint8
	Payload    []byte
}

func (m *ServerCommand) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.Permission))
	e.WriteByte(m.Op)
	e.WriteLenBytes(m.Payload)
}

func DecodeServerCommand(d *Decoder) (*ServerCommand, error) {
	m := &ServerCommand{}
	perm, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.Permission = Permission(perm)
	if m.Op, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if m.Payload, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Lobby / roster / chat
// ---------------------------------------------------------------------------

// ChatKind classifies chat messages.
type ChatKind uint8

const (
	ChatDefault ChatKind = iota
	ChatTeam
	ChatPrivate
	ChatServer
)

// ChatMessage is one chat line. Its ID is scoped to the sender: the client
// numbers its own messages, the server numbers the ones it relays.
type ChatMessage struct {
	ID     SequenceID
	Kind   ChatKind
	Sender string
	Text   string
}

func (m *ChatMessage) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.ID))
	e.WriteByte(byte(m.Kind))
	e.WriteString(m.Sender)
	e.WriteString(m.Text)
}

// EncodedSize is the exact number of bytes Encode writes.
func (m *ChatMessage) EncodedSize() int {
	return 2 + 1 + uvarintLen(len(m.Sender)) + len(m.Sender) + uvarintLen(len(m.Text)) + len(m.Text)
}

func DecodeChatMessage(d *Decoder) (*ChatMessage, error) {
	m := &ChatMessage{}
	id, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.ID = SequenceID(id)
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Kind = ChatKind(kind)
	if m.Sender, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Text, err = d.ReadString(); err != nil {
		return nil, err
	}
	return m, nil
}

func uvarintLen(n int) int {
	size := 1
	for n >= 0x80 {
		n >>= 7
		size++
	}
	return size
}

// ClientRecord is the roster entry of one participant.
type ClientRecord struct {
	ID          uint8
	Name        string
	Team        uint8
	Ready       bool
	InGame      bool
	Permissions Permission
}

// ClientList is a full roster snapshot.
type ClientList struct {
	ListID  SequenceID
	Clients []ClientRecord
}

func (m *ClientList) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.ListID))
	e.WriteUvarint(uint64(len(m.Clients)))
	for _, c := range m.Clients {
		e.WriteByte(c.ID)
		e.WriteString(c.Name)
		e.WriteByte(c.Team)
		e.WriteBool(c.Ready)
		e.WriteBool(c.InGame)
		e.WriteUint16(uint16(c.Permissions))
	}
}

func DecodeClientList(d *Decoder) (*ClientList, error) {
	m := &ClientList{}
	id, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.ListID = SequenceID(id)

	n, err := d.readCount(maxClients)
	if err != nil {
		return nil, err
	}
	m.Clients = make([]ClientRecord, n)
	for i := range m.Clients {
		c := &m.Clients[i]
		if c.ID, err = d.ReadByte(); err != nil {
			return nil, err
		}
		if c.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		if c.Team, err = d.ReadByte(); err != nil {
			return nil, err
		}
		if c.Ready, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if c.InGame, err = d.ReadBool(); err != nil {
			return nil, err
		}
		perms, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		c.Permissions = Permission(perms)
	}
	return m, nil
}

// LobbyData is the lobby settings block carried by a server lobby update.
type LobbyData struct {
	ServerName    string
	ServerMessage string
	Submarine     SubmarineRef
	ModeID        string
}

// ServerLobbySync is the SyncIDs segment of a server UPDATE_LOBBY. Data is
// only present when the server believes the client's lobby id is stale.
type ServerLobbySync struct {
	LobbyID        SequenceID
	LastRecvChatID SequenceID // newest client chat id the server has received
	Data           *LobbyData
}

func (m *ServerLobbySync) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.LobbyID))
	e.WriteUint16(uint16(m.LastRecvChatID))
	e.WriteBool(m.Data != nil)
	if m.Data != nil {
		e.WriteString(m.Data.ServerName)
		e.WriteString(m.Data.ServerMessage)
		m.Data.Submarine.encode(e)
		e.WriteString(m.Data.ModeID)
	}
}

// DecodeServerLobbySyncHeader reads the ids and the data flag, leaving d at
// the lobby data so callers can skip it when the lobby id is stale.
func DecodeServerLobbySyncHeader(d *Decoder) (lobbyID, lastRecvChatID SequenceID, hasData bool, err error) {
	l, err := d.ReadUint16()
	if err != nil {
		return 0, 0, false, err
	}
	c, err := d.ReadUint16()
	if err != nil {
		return 0, 0, false, err
	}
	hasData, err = d.ReadBool()
	return SequenceID(l), SequenceID(c), hasData, err
}

func DecodeLobbyData(d *Decoder) (*LobbyData, error) {
	m := &LobbyData{}
	var err error
	if m.ServerName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.ServerMessage, err = d.ReadString(); err != nil {
		return nil, err
	}
	if m.Submarine, err = decodeSubmarineRef(d); err != nil {
		return nil, err
	}
	if m.ModeID, err = d.ReadString(); err != nil {
		return nil, err
	}
	return m, nil
}

// ServerRoundSync is the SyncIDs segment of a server UPDATE_INGAME.
type ServerRoundSync struct {
	LastRecvChatID    SequenceID
	LastEntityEventID SequenceID // newest entity event id the server has sent
}

func (m *ServerRoundSync) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.LastRecvChatID))
	e.WriteUint16(uint16(m.LastEntityEventID))
}

func DecodeServerRoundSync(d *Decoder) (*ServerRoundSync, error) {
	c, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	ev, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &ServerRoundSync{LastRecvChatID: SequenceID(c), LastEntityEventID: SequenceID(ev)}, nil
}

// CampaignPointer tells the server which campaign save the client holds.
type CampaignPointer struct {
	CampaignID uint8
	SaveID     SequenceID
}

// ClientLobbySync is the SyncIDs segment of a client UPDATE_LOBBY.
type ClientLobbySync struct {
	LobbyID        SequenceID
	LastRecvChatID SequenceID
	ClientListID   SequenceID
	Campaign       CampaignPointer
}

func (m *ClientLobbySync) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.LobbyID))
	e.WriteUint16(uint16(m.LastRecvChatID))
	e.WriteUint16(uint16(m.ClientListID))
	e.WriteByte(m.Campaign.CampaignID)
	e.WriteUint16(uint16(m.Campaign.SaveID))
}

func DecodeClientLobbySync(d *Decoder) (*ClientLobbySync, error) {
	var raw [4]uint16
	var campaign byte
	var err error
	if raw[0], err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if raw[1], err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if raw[2], err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if campaign, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if raw[3], err = d.ReadUint16(); err != nil {
		return nil, err
	}
	return &ClientLobbySync{
		LobbyID:        SequenceID(raw[0]),
		LastRecvChatID: SequenceID(raw[1]),
		ClientListID:   SequenceID(raw[2]),
		Campaign:       CampaignPointer{CampaignID: campaign, SaveID: SequenceID(raw[3])},
	}, nil
}

// CampaignUpdate is the server's Campaign lobby segment: the newest update
// id of every campaign flag the server holds.
type CampaignUpdate struct {
	CampaignID uint8
	SaveID     SequenceID
	UpdateIDs  UpdateIDs
}

func (m *CampaignUpdate) Encode(e *Encoder) {
	e.WriteByte(m.CampaignID)
	e.WriteUint16(uint16(m.SaveID))
	m.UpdateIDs.encode(e)
}

func DecodeCampaignUpdate(d *Decoder) (*CampaignUpdate, error) {
	m := &CampaignUpdate{}
	var err error
	if m.CampaignID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	save, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	m.SaveID = SequenceID(save)
	if m.UpdateIDs, err = decodeUpdateIDs(d); err != nil {
		return nil, err
	}
	return m, nil
}

// ClientRoundSync is the SyncIDs segment of a client UPDATE_INGAME.
// HasEntityEvents is false until the first entity event of the round has
// been released; LastRecvEntityEventID is not written in that case.
type ClientRoundSync struct {
	LastRecvChatID        SequenceID
	HasEntityEvents       bool
	LastRecvEntityEventID SequenceID
	ClientListID          SequenceID
	Campaign              CampaignPointer
}

func (m *ClientRoundSync) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.LastRecvChatID))
	e.WriteBool(m.HasEntityEvents)
	if m.HasEntityEvents {
		e.WriteUint16(uint16(m.LastRecvEntityEventID))
	}
	e.WriteUint16(uint16(m.ClientListID))
	e.WriteByte(m.Campaign.CampaignID)
	e.WriteUint16(uint16(m.Campaign.SaveID))
}

func DecodeClientRoundSync(d *Decoder) (*ClientRoundSync, error) {
	m := &ClientRoundSync{}
	var v uint16
	var err error
	if v, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	m.LastRecvChatID = SequenceID(v)
	if m.HasEntityEvents, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if m.HasEntityEvents {
		if v, err = d.ReadUint16(); err != nil {
			return nil, err
		}
		m.LastRecvEntityEventID = SequenceID(v)
	}
	if v, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	m.ClientListID = SequenceID(v)
	if m.Campaign.CampaignID, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if v, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	m.Campaign.SaveID = SequenceID(v)
	return m, nil
}

// Preferences is the client's lobby preference segment.
type Preferences struct {
	Name string
	Job  string
	Team string
}

func (m *Preferences) Encode(e *Encoder) {
	e.WriteString(m.Name)
	e.WriteString(m.Job)
	e.WriteString(m.Team)
}

// CharacterInput is the controlled character's input state.
type CharacterInput struct {
	Keys uint16
	AimX float32
	AimY float32
}

func (m *CharacterInput) Encode(e *Encoder) {
	e.WriteUint16(m.Keys)
	e.WriteFloat32(m.AimX)
	e.WriteFloat32(m.AimY)
}

// Camera is the client's camera position, used by the server for relevance.
type Camera struct {
	X float32
	Y float32
}

func (m *Camera) Encode(e *Encoder) {
	e.WriteFloat32(m.X)
	e.WriteFloat32(m.Y)
}

// EntityEvent is an ordered, id-stamped state change of one entity.
type EntityEvent struct {
	ID       SequenceID
	EntityID uint16
	Data     []byte
}

func (m *EntityEvent) Encode(e *Encoder) {
	e.WriteUint16(uint16(m.ID))
	e.WriteUint16(m.EntityID)
	e.WriteLenBytes(m.Data)
}

// EncodedSize is the exact number of bytes Encode writes.
func (m *EntityEvent) EncodedSize() int {
	return 4 + uvarintLen(len(m.Data)) + len(m.Data)
}

func DecodeEntityEvent(d *Decoder) (*EntityEvent, error) {
	id, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	entity, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	data, err := d.ReadLenBytes()
	if err != nil {
		return nil, err
	}
	return &EntityEvent{ID: SequenceID(id), EntityID: entity, Data: data}, nil
}

// EntityPosition is an unordered positional update of one entity.
type EntityPosition struct {
	EntityID uint16
	X        float32
	Y        float32
}

func (m *EntityPosition) Encode(e *Encoder) {
	e.WriteUint16(m.EntityID)
	e.WriteFloat32(m.X)
	e.WriteFloat32(m.Y)
}

func DecodeEntityPosition(d *Decoder) (*EntityPosition, error) {
	m := &EntityPosition{}
	var err error
	if m.EntityID, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if m.X, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	if m.Y, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	return m, nil
}
