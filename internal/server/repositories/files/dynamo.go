package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// dynamoItem is the stored shape: the record's attributes at the top level
// plus an append-only history list.
type dynamoItem struct {
	models.FileRecord
	History []models.StatusChange `dynamodbav:"history,omitempty"`
}

// DynamoRepository stores one item per file in a table whose partition key
// is the string attribute "fileId".
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoRepository constructs a repository over the given table.
func NewDynamoRepository(client DynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

func (r *DynamoRepository) key(fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"fileId": &types.AttributeValueMemberS{Value: fileID}}
}

// Create puts a new item; an existing fileId yields common.ErrorAlreadyExists.
func (r *DynamoRepository) Create(ctx context.Context, record *models.FileRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		FileRecord: *record,
		History: []models.StatusChange{
			{Status: record.UploadedStatus, Bucket: record.Bucket, At: record.UpdatedTimestamp},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(fileId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("file %s: %w", record.FileID, common.ErrorAlreadyExists)
		}
		return fmt.Errorf("dynamodb put error: %w", err)
	}
	return nil
}

func (r *DynamoRepository) get(ctx context.Context, fileID string) (*dynamoItem, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(fileID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	if item.Metadata != nil {
		item.Metadata = models.NormalizeNumbers(item.Metadata).(map[string]any)
	}
	return &item, nil
}

// GetByID returns the record for fileID or common.ErrorNotFound.
func (r *DynamoRepository) GetByID(ctx context.Context, fileID string) (*models.FileRecord, error) {
	item, err := r.get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &item.FileRecord, nil
}

// History returns the status transitions of fileID, oldest first.
func (r *DynamoRepository) History(ctx context.Context, fileID string) ([]models.StatusChange, error) {
	item, err := r.get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return item.History, nil
}

// UpdateStatus sets uploadedStatus and updatedTimestamp.
func (r *DynamoRepository) UpdateStatus(ctx context.Context, fileID string, status models.UploadStatus, at time.Time) error {
	return r.update(ctx, fileID,
		"SET uploadedStatus = :status, updatedTimestamp = :ts, history = list_append(if_not_exists(history, :empty), :entry)",
		nil, map[string]any{":status": status}, models.StatusChange{Status: status, At: at}, at)
}

// UpdateLocation sets bucket, uploadedStatus and updatedTimestamp in one update.
func (r *DynamoRepository) UpdateLocation(ctx context.Context, fileID string, bucket string, status models.UploadStatus, at time.Time) error {
	return r.update(ctx, fileID,
		"SET #bucketName = :bucket, uploadedStatus = :status, updatedTimestamp = :ts, history = list_append(if_not_exists(history, :empty), :entry)",
		map[string]string{"#bucketName": "bucket"},
		map[string]any{":status": status, ":bucket": bucket},
		models.StatusChange{Status: status, Bucket: bucket, At: at}, at)
}

func (r *DynamoRepository) update(ctx context.Context, fileID, expr string, names map[string]string,
	values map[string]any, change models.StatusChange, at time.Time) error {

	values[":ts"] = at
	values[":entry"] = []models.StatusChange{change}

	av := make(map[string]types.AttributeValue, len(values)+1)
	av[":empty"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{}}
	for k, v := range values {
		m, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", k, err)
		}
		av[k] = m
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       r.key(fileID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(fileId)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: av,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("dynamodb update error: %w", err)
	}
	return nil
}
