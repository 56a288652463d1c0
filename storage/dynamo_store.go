package storage

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/jpillora/backoff"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

const (
	DefaultDynamoTable = "cells"

	keyAttr  = "key"
	revAttr  = "rev"
	compAttr = "comp"

	noneValue = "none"
	gzipValue = "gzip"

	dynamoCompressThreshold = 1024
	dynamoThrottleCode      = "ProvisionedThroughputExceededException"
	dynamoMaxAttempts       = 8
)

// ddbsvc is the slice of the DynamoDB API the store needs. Tests implement
// it with an in-memory fake.
type ddbsvc interface {
	GetItem(input *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	PutItem(input *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
}

// DynamoStore persists revisions as items in a DynamoDB table, one item per
// address. Frames above dynamoCompressThreshold are gzipped, with the comp
// attribute recording the codec.
type DynamoStore struct {
	table     string
	namespace string
	ddbsvc    ddbsvc
}

func NewDynamoStore(table, namespace, region, key, secret string) *DynamoStore {
	config := aws.NewConfig().WithRegion(region)
	if key != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(key, secret, ""))
	}
	return newDynamoStoreFromDDBsvc(table, namespace, dynamodb.New(session.New(config)))
}

func newDynamoStoreFromDDBsvc(table, namespace string, ddb ddbsvc) *DynamoStore {
	if table == "" {
		table = DefaultDynamoTable
	}
	return &DynamoStore{table: table, namespace: namespace, ddbsvc: ddb}
}

func (s *DynamoStore) namespacedKey(addr entity.Address) string {
	if s.namespace == "" {
		return addr.Key()
	}
	return s.namespace + ":" + addr.Key()
}

func (s *DynamoStore) Get(addr entity.Address) Revision {
	var result *dynamodb.GetItemOutput
	s.retry("get", func() error {
		var err error
		result, err = s.ddbsvc.GetItem(&dynamodb.GetItemInput{
			TableName:      aws.String(s.table),
			ConsistentRead: aws.Bool(true),
			Key: map[string]*dynamodb.AttributeValue{
				keyAttr: {S: aws.String(s.namespacedKey(addr))},
			},
		})
		return err
	})
	if len(result.Item) == 0 {
		return Revision{}
	}
	rev, ok := result.Item[revAttr]
	d.Chk.True(ok, "dynamo item %s has no rev attribute", addr.Key())
	frame := rev.B
	if comp, ok := result.Item[compAttr]; ok && comp.S != nil && *comp.S == gzipValue {
		gr, err := gzip.NewReader(bytes.NewReader(frame))
		d.Chk.NoError(err)
		frame, err = ioutil.ReadAll(gr)
		d.Chk.NoError(err)
		d.Chk.NoError(gr.Close())
	}
	return decodeRevision(frame)
}

func (s *DynamoStore) Put(addr entity.Address, rev Revision) {
	d.Chk.False(addr.IsEmpty())
	frame := encodeRevision(rev)
	comp := noneValue
	if len(frame) > dynamoCompressThreshold {
		buf := &bytes.Buffer{}
		gw := gzip.NewWriter(buf)
		_, err := gw.Write(frame)
		d.Chk.NoError(err)
		d.Chk.NoError(gw.Close())
		if buf.Len() < len(frame) {
			frame = buf.Bytes()
			comp = gzipValue
		}
	}
	s.retry("put", func() error {
		_, err := s.ddbsvc.PutItem(&dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item: map[string]*dynamodb.AttributeValue{
				keyAttr:  {S: aws.String(s.namespacedKey(addr))},
				revAttr:  {B: frame},
				compAttr: {S: aws.String(comp)},
			},
		})
		return err
	})
}

func (s *DynamoStore) Has(addr entity.Address) bool {
	var result *dynamodb.GetItemOutput
	s.retry("has", func() error {
		var err error
		result, err = s.ddbsvc.GetItem(&dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key: map[string]*dynamodb.AttributeValue{
				keyAttr: {S: aws.String(s.namespacedKey(addr))},
			},
		})
		return err
	})
	return len(result.Item) > 0
}

// retry runs f, backing off and retrying while DynamoDB reports throttling.
// Any other failure panics.
func (s *DynamoStore) retry(op string, f func() error) {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second, Jitter: true}
	for {
		err := f()
		if err == nil {
			return
		}
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == dynamoThrottleCode && b.Attempt() < dynamoMaxAttempts {
			delay := b.Duration()
			verbose.Log("dynamo %s throttled; retrying in %s", op, delay)
			time.Sleep(delay)
			continue
		}
		d.Chk.NoError(err)
	}
}

func (s *DynamoStore) Close() error {
	return nil
}
