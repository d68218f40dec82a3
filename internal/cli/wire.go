package cli

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/dripforge/dripforge/internal/flows"
	"github.com/dripforge/dripforge/internal/reconcile"
	"github.com/dripforge/dripforge/internal/streamcfg"
	"github.com/dripforge/dripforge/internal/validate"
)

// Wire shapes for JSON payload and event files. Numeric ids and packed
// configs are decimal strings: they routinely exceed 64 bits and must not
// pass through floats.

type receiverJSON struct {
	UserID string `json:"userId"`
	Config string `json:"config"`
}

type splitsReceiverJSON struct {
	UserID string `json:"userId"`
	Weight uint32 `json:"weight"`
}

type metadataJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type historyEntryJSON struct {
	DripsHash  string         `json:"dripsHash,omitempty"`
	Receivers  []receiverJSON `json:"receivers,omitempty"`
	UpdateTime uint32         `json:"updateTime"`
	MaxEnd     uint32         `json:"maxEnd"`
}

type squeezeJSON struct {
	SenderID    string             `json:"senderId"`
	HistoryHash string             `json:"historyHash"`
	History     []historyEntryJSON `json:"dripsHistory"`
}

type streamUpdateJSON struct {
	TokenAddress     string         `json:"tokenAddress"`
	SignerAddress    string         `json:"signerAddress"`
	UserID           string         `json:"userId"`
	CurrentReceivers []receiverJSON `json:"currentReceivers"`
	NewReceivers     []receiverJSON `json:"newReceivers"`
	BalanceDelta     string         `json:"balanceDelta"`
	TransferTo       string         `json:"transferTo"`
	Metadata         []metadataJSON `json:"metadata,omitempty"`
}

type collectJSON struct {
	TokenAddress    string               `json:"tokenAddress"`
	SignerAddress   string               `json:"signerAddress"`
	UserID          string               `json:"userId"`
	Squeezes        []squeezeJSON        `json:"squeezes,omitempty"`
	MaxCycles       uint32               `json:"maxCycles"`
	SplitsReceivers []splitsReceiverJSON `json:"splitsReceivers,omitempty"`
	TransferTo      string               `json:"transferTo"`
}

type seenEntryJSON struct {
	ReceiverUserID string `json:"receiverUserId"`
	Config         string `json:"config"`
	EntryID        string `json:"entryId"`
}

type setEventJSON struct {
	UserID              string          `json:"userId"`
	AssetID             string          `json:"assetId"`
	ReceiversHash       string          `json:"receiversHash"`
	BlockTimestamp      uint64          `json:"blockTimestamp"`
	ReceiverSeenEntries []seenEntryJSON `json:"receiverSeenEntries"`
}

// batchJSON is the output shape for compiled batches.
type batchJSON struct {
	BatchToken string     `json:"batchToken"`
	Calls      []callJSON `json:"calls"`
}

type callJSON struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

func parseBigInt(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%s: must not be empty", field)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a decimal integer", field, value)
	}
	return v, nil
}

func parseHash(field, value string) ([32]byte, error) {
	var out [32]byte
	if value == "" {
		return out, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return out, fmt.Errorf("%s: %q is not hex: %w", field, value, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%s: %q is %d bytes, want 32", field, value, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseReceivers(field string, in []receiverJSON) ([]streamcfg.Receiver, error) {
	out := make([]streamcfg.Receiver, len(in))
	for i, r := range in {
		userID, err := parseBigInt(fmt.Sprintf("%s[%d].userId", field, i), r.UserID)
		if err != nil {
			return nil, err
		}
		config, err := parseBigInt(fmt.Sprintf("%s[%d].config", field, i), r.Config)
		if err != nil {
			return nil, err
		}
		out[i] = streamcfg.Receiver{UserID: userID, Config: config}
	}
	return out, nil
}

func (j *streamUpdateJSON) toPayload() (*flows.StreamUpdatePayload, error) {
	userID, err := parseBigInt("userId", j.UserID)
	if err != nil {
		return nil, err
	}
	curr, err := parseReceivers("currentReceivers", j.CurrentReceivers)
	if err != nil {
		return nil, err
	}
	next, err := parseReceivers("newReceivers", j.NewReceivers)
	if err != nil {
		return nil, err
	}
	delta, err := parseBigInt("balanceDelta", j.BalanceDelta)
	if err != nil {
		return nil, err
	}

	metadata := make([]validate.MetadataEntry, len(j.Metadata))
	for i, m := range j.Metadata {
		metadata[i] = validate.MetadataEntry{Key: m.Key, Value: m.Value}
	}

	return &flows.StreamUpdatePayload{
		TokenAddress:     j.TokenAddress,
		SignerAddress:    j.SignerAddress,
		UserID:           userID,
		CurrentReceivers: curr,
		NewReceivers:     next,
		BalanceDelta:     delta,
		TransferTo:       j.TransferTo,
		Metadata:         metadata,
	}, nil
}

func (j *collectJSON) toPayload() (*flows.CollectPayload, error) {
	userID, err := parseBigInt("userId", j.UserID)
	if err != nil {
		return nil, err
	}

	squeezes := make([]flows.SqueezeRequest, len(j.Squeezes))
	for i, sq := range j.Squeezes {
		senderID, err := parseBigInt(fmt.Sprintf("squeezes[%d].senderId", i), sq.SenderID)
		if err != nil {
			return nil, err
		}
		historyHash, err := parseHash(fmt.Sprintf("squeezes[%d].historyHash", i), sq.HistoryHash)
		if err != nil {
			return nil, err
		}
		history := make([]validate.HistoryEntry, len(sq.History))
		for k, h := range sq.History {
			hash, err := parseHash(fmt.Sprintf("squeezes[%d].dripsHistory[%d].dripsHash", i, k), h.DripsHash)
			if err != nil {
				return nil, err
			}
			receivers, err := parseReceivers(
				fmt.Sprintf("squeezes[%d].dripsHistory[%d].receivers", i, k), h.Receivers)
			if err != nil {
				return nil, err
			}
			history[k] = validate.HistoryEntry{
				DripsHash:  hash,
				Receivers:  receivers,
				UpdateTime: h.UpdateTime,
				MaxEnd:     h.MaxEnd,
			}
		}
		squeezes[i] = flows.SqueezeRequest{
			SenderID:    senderID,
			HistoryHash: historyHash,
			History:     history,
		}
	}

	splits := make([]streamcfg.SplitsReceiver, len(j.SplitsReceivers))
	for i, r := range j.SplitsReceivers {
		userID, err := parseBigInt(fmt.Sprintf("splitsReceivers[%d].userId", i), r.UserID)
		if err != nil {
			return nil, err
		}
		splits[i] = streamcfg.SplitsReceiver{UserID: userID, Weight: r.Weight}
	}

	return &flows.CollectPayload{
		TokenAddress:    j.TokenAddress,
		SignerAddress:   j.SignerAddress,
		UserID:          userID,
		Squeezes:        squeezes,
		MaxCycles:       j.MaxCycles,
		SplitsReceivers: splits,
		TransferTo:      j.TransferTo,
	}, nil
}

func (j *setEventJSON) toEvent() (reconcile.SetEvent, error) {
	userID, err := parseBigInt("userId", j.UserID)
	if err != nil {
		return reconcile.SetEvent{}, err
	}
	assetID, err := parseBigInt("assetId", j.AssetID)
	if err != nil {
		return reconcile.SetEvent{}, err
	}
	hash, err := parseHash("receiversHash", j.ReceiversHash)
	if err != nil {
		return reconcile.SetEvent{}, err
	}

	entries := make([]reconcile.SeenEntry, len(j.ReceiverSeenEntries))
	for i, e := range j.ReceiverSeenEntries {
		receiverID, err := parseBigInt(fmt.Sprintf("receiverSeenEntries[%d].receiverUserId", i), e.ReceiverUserID)
		if err != nil {
			return reconcile.SetEvent{}, err
		}
		config, err := parseBigInt(fmt.Sprintf("receiverSeenEntries[%d].config", i), e.Config)
		if err != nil {
			return reconcile.SetEvent{}, err
		}
		entries[i] = reconcile.SeenEntry{
			ReceiverUserID: receiverID,
			Config:         config,
			EntryID:        e.EntryID,
		}
	}

	return reconcile.SetEvent{
		UserID:              userID,
		AssetID:             assetID,
		ReceiversHash:       hash,
		BlockTimestamp:      j.BlockTimestamp,
		ReceiverSeenEntries: entries,
	}, nil
}

func batchToJSON(b *flows.Batch) batchJSON {
	out := batchJSON{BatchToken: b.Token, Calls: make([]callJSON, len(b.Calls))}
	for i, call := range b.Calls {
		value := "0"
		if call.Value != nil {
			value = call.Value.String()
		}
		out.Calls[i] = callJSON{
			To:    call.To.Hex(),
			Data:  "0x" + hex.EncodeToString(call.Data),
			Value: value,
		}
	}
	return out
}
