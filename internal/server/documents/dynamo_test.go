package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScan struct {
	pages []*dynamodb.ScanOutput
	err   error
	calls int
	input []*dynamodb.ScanInput
}

func (f *fakeScan) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.input = append(f.input, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

func item(id, email string) map[string]types.AttributeValue {
	m := map[string]types.AttributeValue{}
	if id != "" {
		m["id"] = &types.AttributeValueMemberS{Value: id}
	}
	if email != "" {
		m["email"] = &types.AttributeValueMemberS{Value: email}
	}
	return m
}

func TestDynamoProfileStore_ListProfiles(t *testing.T) {
	f := &fakeScan{pages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{item("u1", "a@x.io"), item("u2", "")},
			LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u2"}},
		},
		{
			Items: []map[string]types.AttributeValue{item("u3", "c@x.io")},
		},
	}}

	s := NewDynamoProfileStore(f, "userProfiles", 2, logging.Discard())
	got, err := s.ListProfiles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []identity.Identity{{ID: "u1", Email: "a@x.io"}, {ID: "u3", Email: "c@x.io"}}, got)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, "userProfiles", *f.input[0].TableName)
	assert.Equal(t, int32(2), *f.input[0].Limit)
	assert.NotNil(t, f.input[1].ExclusiveStartKey)
}

func TestDynamoProfileStore_ScanError(t *testing.T) {
	f := &fakeScan{err: errors.New("throttled")}
	s := NewDynamoProfileStore(f, "userProfiles", 0, logging.Discard())

	_, err := s.ListProfiles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}
