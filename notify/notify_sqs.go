package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS publishes one JSON message per artifact.
type SQS struct {
	client      sqsAPI
	queueURL    string
	queueURLPtr *string
}

func NewSQS(client sqsAPI, queueURL string) *SQS {
	if client == nil {
		panic("sqs client is required")
	}
	if queueURL == "" {
		panic("queue url is required")
	}
	n := &SQS{client: client, queueURL: queueURL}
	n.queueURLPtr = &n.queueURL
	return n
}

func (n *SQS) Notify(ctx context.Context, ev ArtifactEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal artifact event: %w", err)
	}

	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    n.queueURLPtr,
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"bucket": {DataType: aws.String("String"), StringValue: aws.String(ev.Bucket)},
			"key":    {DataType: aws.String("String"), StringValue: aws.String(ev.Key)},
		},
	})
	if err != nil {
		return fmt.Errorf("send sqs message queue=%q: %w", n.queueURL, err)
	}
	return nil
}
