package dto

// PublishEmbedKBEntryMessage asks the consumer to (re)compute one entry's
// embedding.
type PublishEmbedKBEntryMessage struct {
	EntryId string `json:"entry_id"`
}
