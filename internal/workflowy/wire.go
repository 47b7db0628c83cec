package workflowy

import "encoding/json"

// Wire-format structures for the WorkFlowy HTTP API. Field names follow
// the service's JSON. Timestamps on the wire are seconds relative to the
// account's join date, not Unix time.

type initializationData struct {
	ProjectTreeData struct {
		ClientID            string              `json:"clientId"`
		MainProjectTreeInfo mainProjectTreeInfo `json:"mainProjectTreeInfo"`
	} `json:"projectTreeData"`
}

type mainProjectTreeInfo struct {
	RootProjectChildren          []wireNode `json:"rootProjectChildren"`
	InitialTransactionID         string     `json:"initialMostRecentOperationTransactionId"`
	OwnerID                      int64      `json:"ownerId"`
	DateJoinedTimestampInSeconds int64      `json:"dateJoinedTimestampInSeconds"`
}

// wireNode is one outline item as the service serializes it.
type wireNode struct {
	ID           string        `json:"id"`
	Name         string        `json:"nm"`
	Note         string        `json:"no,omitempty"`
	CompletedAt  *int64        `json:"cp,omitempty"`
	LastModified int64         `json:"lm,omitempty"`
	Children     []wireNode    `json:"ch,omitempty"`
	Metadata     *wireMetadata `json:"metadata,omitempty"`
	Shared       *wireShared   `json:"shared,omitempty"`
}

type wireMetadata struct {
	Mirror *wireMirror `json:"mirror,omitempty"`
}

type wireMirror struct {
	IsMirrorRoot bool   `json:"isMirrorRoot,omitempty"`
	OriginalID   string `json:"originalId,omitempty"`
}

type wireShared struct {
	URLSharedInfo *wireURLShare `json:"url_shared_info,omitempty"`
}

type wireURLShare struct {
	AccessToken string `json:"access_token"`
}

// Operation types accepted by push_and_poll.
const (
	opCreate     = "create"
	opEdit       = "edit"
	opComplete   = "complete"
	opUncomplete = "uncomplete"
	opMove       = "move"
	opDelete     = "delete"
)

// operation is one queued mutation in push_and_poll format.
type operation struct {
	Type            string   `json:"type"`
	Data            opData   `json:"data"`
	ClientTimestamp int64    `json:"client_timestamp"`
	UndoData        struct{} `json:"undo_data"`
}

type opData struct {
	ProjectID   string  `json:"projectid"`
	ParentID    string  `json:"parentid,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type pushPollRequest struct {
	MostRecentOperationTransactionID string          `json:"most_recent_operation_transaction_id"`
	Operations                       json.RawMessage `json:"operations"`
}

type pushPollResponse struct {
	Results []pushPollResult `json:"results"`
}

type pushPollResult struct {
	NewTransactionID string `json:"new_most_recent_operation_transaction_id"`
	RemoteError      string `json:"error_encountered_in_remote_operations,omitempty"`
}
