// Package photo stores evidence photos attached to complaints. Uploads arrive as
// data URIs or bare base64; when the blob store is missing or fails, the original
// payload is kept inline so the evidence is never lost.
package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	KeyPrefix          = "complaint-photos/"
	defaultContentType = "image/jpeg"
)

// BlobStore persists bytes and returns a URL for them.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type DropCounter interface {
	ObserveDropped(kind string)
}

// Uploader turns photo payloads into URLs. Blobs may be nil.
type Uploader struct {
	Blobs   BlobStore
	Log     logrus.FieldLogger
	Dropped DropCounter
}

func NewUploader(blobs BlobStore, log logrus.FieldLogger, dropped DropCounter) *Uploader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Uploader{Blobs: blobs, Log: log, Dropped: dropped}
}

// Save stores payload as a <kind> photo of complaintID and returns the URL to
// keep on the complaint, falling back to payload itself.
func (u *Uploader) Save(ctx context.Context, kind, complaintID, payload string) string {
	if u.Blobs == nil || payload == "" {
		return payload
	}
	log := u.Log.WithFields(logrus.Fields{"complaint_id": complaintID, "kind": kind})

	data, contentType, err := Decode(payload)
	if err != nil {
		log.WithError(err).Warn("photo payload is not base64, keeping it inline")
		u.drop()
		return payload
	}

	url, err := u.Blobs.Put(ctx, ObjectKey(kind, complaintID), data, contentType)
	if err != nil {
		log.WithError(err).Warn("photo upload failed, keeping it inline")
		u.drop()
		return payload
	}
	return url
}

func (u *Uploader) drop() {
	if u.Dropped != nil {
		u.Dropped.ObserveDropped("photo")
	}
}

// ObjectKey names a new object for a photo of complaintID.
func ObjectKey(kind, complaintID string) string {
	return fmt.Sprintf("%s%s_%s_%s.jpg", KeyPrefix, kind, complaintID, uuid.New().String())
}

// Decode extracts the bytes and content type of a data URI or bare base64 string.
func Decode(payload string) ([]byte, string, error) {
	contentType := defaultContentType
	raw := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", errors.New("malformed data URI")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", errors.New("data URI is not base64 encoded")
		}
		if ct := strings.TrimSuffix(meta, ";base64"); ct != "" {
			contentType = ct
		}
		raw = body
	} else if _, body, ok := strings.Cut(payload, ","); ok {
		raw = body
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode photo: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty photo")
	}
	return data, contentType, nil
}
