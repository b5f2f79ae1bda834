// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package sqs implements the queue broker on Amazon SQS. Queue names ending
// in .fifo are created as FIFO queues; FIFO sends carry an MD5 content
// deduplication id and the queue name as the message group.
package sqs

import (
	"context"
	"crypto/md5"
	stderr "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
)

// Amazon limits.
const (
	maxBatch    = 10
	waitTime    = 20 * time.Second
	deletedWait = 70 * time.Second
)

var _ mq.Broker = (*broker)(nil)

// Config holds SQS client settings. Endpoint overrides the AWS endpoint for
// local stacks.
type Config struct {
	Region   string
	Endpoint string
}

type broker struct {
	client *awssqs.Client
	logger *slog.Logger

	mu   sync.Mutex
	urls map[string]string
}

// New builds an SQS broker.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (mq.Broker, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}

	client := awssqs.NewFromConfig(awsCfg, func(o *awssqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &broker{
		client: client,
		logger: logger,
		urls:   make(map[string]string),
	}, nil
}

func (b *broker) Ensure(ctx context.Context, queue string) error {
	b.mu.Lock()
	_, ok := b.urls[queue]
	b.mu.Unlock()
	if ok {
		return nil
	}

	input := &awssqs.CreateQueueInput{QueueName: aws.String(queue)}
	if strings.HasSuffix(queue, ".fifo") {
		input.Attributes = map[string]string{"FifoQueue": "true"}
	}

	out, err := b.client.CreateQueue(ctx, input)
	if err != nil {
		var deleted *types.QueueDeletedRecently
		if !stderr.As(err, &deleted) {
			return err
		}

		// Amazon requires a 60 second cooldown after queue deletion.
		b.logger.Warn("queue deleted recently, waiting before recreate", slog.String("queue", queue))
		select {
		case <-time.After(deletedWait):
		case <-ctx.Done():
			return ctx.Err()
		}
		if out, err = b.client.CreateQueue(ctx, input); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.urls[queue] = aws.ToString(out.QueueUrl)
	b.mu.Unlock()

	b.logger.Info("ensured queue", slog.String("queue", queue))

	return nil
}

func (b *broker) url(ctx context.Context, queue string) (string, error) {
	b.mu.Lock()
	url, ok := b.urls[queue]
	b.mu.Unlock()
	if ok {
		return url, nil
	}

	out, err := b.client.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(queue)})
	if err != nil {
		var missing *types.QueueDoesNotExist
		if stderr.As(err, &missing) {
			return "", errors.Wrap(errors.ErrQueueNotFound, err)
		}
		return "", err
	}

	url = aws.ToString(out.QueueUrl)
	b.mu.Lock()
	b.urls[queue] = url
	b.mu.Unlock()

	return url, nil
}

func (b *broker) Publish(ctx context.Context, queue string, body []byte, delay time.Duration) error {
	url, err := b.url(ctx, queue)
	if err != nil {
		return err
	}

	input := &awssqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(body)),
	}

	if strings.HasSuffix(queue, ".fifo") {
		// DelaySeconds is queue-wide on FIFO queues.
		input.MessageDeduplicationId = aws.String(fmt.Sprintf("%x", md5.Sum(body)))
		input.MessageGroupId = aws.String(queue)
	} else {
		input.DelaySeconds = int32(mq.ClampDelay(delay) / time.Second)
	}

	_, err = b.client.SendMessage(ctx, input)
	return err
}

func (b *broker) Receive(ctx context.Context, queue string, max int) ([]mq.Message, error) {
	url, err := b.url(ctx, queue)
	if err != nil {
		return nil, err
	}

	if max > maxBatch {
		max = maxBatch
	}

	out, err := b.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(waitTime / time.Second),
	})
	if err != nil {
		var missing *types.QueueDoesNotExist
		if stderr.As(err, &missing) {
			return nil, errors.Wrap(errors.ErrQueueNotFound, err)
		}
		return nil, err
	}

	msgs := make([]mq.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, mq.Message{
			ID:     aws.ToString(m.MessageId),
			Handle: aws.ToString(m.ReceiptHandle),
			Body:   []byte(aws.ToString(m.Body)),
		})
	}

	return msgs, nil
}

func (b *broker) Ack(ctx context.Context, queue string, msg mq.Message) error {
	url, err := b.url(ctx, queue)
	if err != nil {
		return err
	}

	_, err = b.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(msg.Handle),
	})
	return err
}

func (b *broker) Close() error {
	return nil
}
