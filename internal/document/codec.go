package document

import (
	"encoding/json"
	"fmt"
)

// Marshal serializes a document for storage.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s document: %w", doc.Head().Kind, err)
	}
	return data, nil
}

// Unmarshal decodes stored bytes back into the concrete document type selected
// by the kind tag.
func Unmarshal(data []byte) (Document, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("probe document kind: %w", err)
	}

	var doc Document
	switch probe.Kind {
	case KindPerson:
		doc = &Person{}
	case KindMinistry:
		doc = &Ministry{}
	case KindChurch:
		doc = &Church{}
	case KindKeys:
		doc = &Keys{}
	case KindPrivateKeys:
		doc = &PrivateKeys{}
	case KindTrusted, KindVerified:
		doc = &Statement{}
	case KindRevoked:
		doc = &Revoked{}
	case KindNetwork:
		doc = &Network{}
	default:
		return nil, fmt.Errorf("unknown document kind %q", probe.Kind)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s document: %w", probe.Kind, err)
	}
	return doc, nil
}
