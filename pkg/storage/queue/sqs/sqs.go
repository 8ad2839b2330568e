package sqs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/util"
)

// Queue carries key lifecycle notifications over SQS.
type Queue struct {
	URL             string `mapstructure:"url"`
	AccessKeyId     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`

	client *sqs.Client
}

func NewQueue(settings map[string]any) (*Queue, error) {
	q := util.ConfigToStruct[Queue](settings)

	appCreds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(q.AccessKeyId, q.SecretAccessKey, ""))

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, err
	}

	q.client = sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		o.Region = q.Region
		o.Credentials = appCreds
	})

	return q, nil
}

func (q *Queue) Enqueue(message []byte) error {
	msg := string(message)
	_, err := q.client.SendMessage(context.TODO(), &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.URL),
		MessageBody: aws.String(msg),
	})
	log.Trace().Str("sqs_url", q.URL).Err(err).Str("message", msg).Msg("Enqueue")
	return err
}

func (q *Queue) receive() (types.Message, bool) {
	res, err := q.client.ReceiveMessage(context.TODO(), &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.URL),
		MaxNumberOfMessages: 1,
	})
	if err != nil {
		log.Error().Err(err).Msg("Unable to poll SQS")
		return types.Message{}, false
	}
	for _, msg := range res.Messages {
		if msg.Body != nil {
			return msg, true
		}
	}
	return types.Message{}, false
}

func (q *Queue) Dequeue() ([]byte, bool) {
	msg, ok := q.receive()
	if !ok {
		return nil, false
	}

	_, err := q.client.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.URL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Error().Err(err).Str("message", *msg.Body).Msg("Unable to delete message from SQS")
	}

	return []byte(*msg.Body), true
}
