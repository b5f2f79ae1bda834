// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/sms"
	"github.com/redis/go-redis/v9"
)

// partTTL bounds how long orphaned multipart segments linger.
const partTTL = 300 * time.Second

// DLRState correlates an SMSC message id with the receipt callback the
// sender asked for.
type DLRState struct {
	ID      string         `json:"id"`
	Request sms.DLRRequest `json:"dlr"`
}

// MOPart is one stored segment of a multipart MO message.
type MOPart struct {
	SourceAddr string `json:"source_addr"`
	DestAddr   string `json:"dest_addr"`
	Coding     int    `json:"coding"`
	Payload    []byte `json:"payload"`
}

// Store persists DLR correlation state and multipart MO segments.
type Store interface {
	// SaveDLR records the callback for an SMSC message id with an expiry.
	SaveDLR(ctx context.Context, messageID string, st DLRState, expiry time.Duration) error

	// GetDLR looks up the callback for an SMSC message id. A miss yields
	// errors.ErrNotFound.
	GetDLR(ctx context.Context, messageID string) (DLRState, error)

	// SavePart stores one segment of a multipart MO message under the
	// reassembly key and refreshes the key TTL.
	SavePart(ctx context.Context, key string, seq int, part MOPart) error

	// Parts returns every stored segment keyed by sequence number.
	Parts(ctx context.Context, key string) (map[int]MOPart, error)

	// DeleteParts drops a reassembly key once the message is published.
	DeleteParts(ctx context.Context, key string) error
}

// PartKey names the reassembly hash for one multipart MO message.
func PartKey(connector string, ref uint16, destAddr string) string {
	return fmt.Sprintf("long_sms:%s:%d:%s", connector, ref, destAddr)
}

type redisStore struct {
	client *redis.Client
}

// NewStore returns a Redis backed Store.
func NewStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) SaveDLR(ctx context.Context, messageID string, st DLRState, expiry time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, messageID, data, expiry).Err()
}

func (s *redisStore) GetDLR(ctx context.Context, messageID string) (DLRState, error) {
	data, err := s.client.Get(ctx, messageID).Bytes()
	if err == redis.Nil {
		return DLRState{}, errors.ErrNotFound
	}
	if err != nil {
		return DLRState{}, err
	}

	var st DLRState
	if err := json.Unmarshal(data, &st); err != nil {
		return DLRState{}, err
	}
	return st, nil
}

func (s *redisStore) SavePart(ctx context.Context, key string, seq int, part MOPart) error {
	data, err := json.Marshal(part)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, key, strconv.Itoa(seq), data).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, partTTL).Err()
}

func (s *redisStore) Parts(ctx context.Context, key string) (map[int]MOPart, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	parts := make(map[int]MOPart, len(fields))
	for field, data := range fields {
		seq, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		var part MOPart
		if err := json.Unmarshal([]byte(data), &part); err != nil {
			return nil, err
		}
		parts[seq] = part
	}
	return parts, nil
}

func (s *redisStore) DeleteParts(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
