package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestStartGameCampaignBranch(t *testing.T) {
	in := &StartGame{
		Seed:              42,
		LevelSeed:         "abyss",
		ModeID:            "Campaign",
		Flags:             FlagAllowRespawn | FlagDisembarkPerks,
		RoundID:           7,
		IsCampaign:        true,
		CampaignID:        3,
		SaveID:            10,
		NextLocationIndex: 4,
		ConnectionIndex:   -1,
		// Ignored for campaign rounds.
		Submarine: SubmarineRef{Name: "Typhon", Hash: "x"},
	}

	e := NewEncoder()
	in.Encode(e)
	out, err := DecodeStartGame(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeStartGame: %v", err)
	}

	if !out.Submarine.IsZero() {
		t.Errorf("campaign STARTGAME carried a submarine: %+v", out.Submarine)
	}
	if out.CampaignID != 3 || out.SaveID != 10 || out.RoundID != 7 || out.ConnectionIndex != -1 {
		t.Errorf("decoded = %+v", out)
	}
	if !out.Flags.Has(FlagDisembarkPerks) || out.Flags.Has(FlagFriendlyFire) {
		t.Errorf("Flags = %b", out.Flags)
	}
}

func TestFinalizeEncodingIsDeterministic(t *testing.T) {
	m := &StartGameFinalize{
		RoundID:     7,
		LevelStages: map[string]uint32{"caves": 3, "A": 1, "ruins": 9, "B": 2},
	}

	first := NewEncoder()
	m.Encode(first)
	for i := 0; i < 20; i++ {
		again := NewEncoder()
		m.Encode(again)
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatal("map iteration order leaked into the encoding")
		}
	}

	out, err := DecodeStartGameFinalize(NewDecoder(first.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.LevelStages, m.LevelStages) {
		t.Errorf("LevelStages = %v, want %v", out.LevelStages, m.LevelStages)
	}
	if out.CrewOrders != nil {
		t.Errorf("CrewOrders = %v, want nil when absent", out.CrewOrders)
	}
}

func TestChatMessageEncodedSize(t *testing.T) {
	for _, text := range []string{"", "hi", string(bytes.Repeat([]byte("x"), 300))} {
		m := &ChatMessage{ID: 9, Kind: ChatTeam, Sender: "Kastner", Text: text}
		e := NewEncoder()
		m.Encode(e)
		if e.Len() != m.EncodedSize() {
			t.Errorf("text len %d: EncodedSize() = %d, encoded %d", len(text), m.EncodedSize(), e.Len())
		}
	}
}

func TestDecodeRejectsHugeCollections(t *testing.T) {
	e := NewEncoder()
	e.WriteUint16(1)
	e.WriteUvarint(1_000_000)
	if _, err := DecodeClientList(NewDecoder(e.Bytes())); !errors.Is(err, ErrCollectionTooBig) {
		t.Errorf("err = %v, want ErrCollectionTooBig", err)
	}
}

func TestDecodeRejectsBadBool(t *testing.T) {
	d := NewDecoder([]byte{0x02})
	if _, err := d.ReadBool(); !errors.Is(err, ErrInvalidBool) {
		t.Errorf("err = %v, want ErrInvalidBool", err)
	}
}

func TestSplitServerMessage(t *testing.T) {
	if _, _, err := SplitServerMessage(nil); !errors.Is(err, ErrEmptyPacket) {
		t.Errorf("err = %v, want ErrEmptyPacket", err)
	}

	e := NewServerMessage(ServerPingRequest)
	e.WriteUint64(123)
	h, d, err := SplitServerMessage(e.Bytes())
	if err != nil || h != ServerPingRequest {
		t.Fatalf("header = %v, err = %v", h, err)
	}
	if v, _ := d.ReadUint64(); v != 123 {
		t.Errorf("payload = %d, want 123", v)
	}
	if ServerHeader(99).Valid() {
		t.Error("unknown header reported valid")
	}
}

func TestRoundSyncEntityEventAck(t *testing.T) {
	tests := []struct {
		name string
		in   ClientRoundSync
		size int
	}{
		{"before first event", ClientRoundSync{LastRecvChatID: 3, LastRecvEntityEventID: 65535, ClientListID: 2}, 8},
		{"after events", ClientRoundSync{LastRecvChatID: 3, HasEntityEvents: true, LastRecvEntityEventID: 65535, ClientListID: 2}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			tt.in.Encode(e)
			if e.Len() != tt.size {
				t.Errorf("encoded %d bytes, want %d", e.Len(), tt.size)
			}
			out, err := DecodeClientRoundSync(NewDecoder(e.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			want := tt.in
			if !want.HasEntityEvents {
				want.LastRecvEntityEventID = 0
			}
			if *out != want {
				t.Errorf("decoded %+v, want %+v", *out, want)
			}
		})
	}
}
