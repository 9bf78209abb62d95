package aws

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmail(t *testing.T) {
	in := BuildEmail("noreply@example.com", "partner@example.com", "New match", "hello", "<p>hello</p>")
	assert.Equal(t, "noreply@example.com", awssdk.ToString(in.Source))
	assert.Equal(t, []string{"partner@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "New match", awssdk.ToString(in.Message.Subject.Data))
	require.NotNil(t, in.Message.Body.Html)
	assert.Equal(t, "hello", awssdk.ToString(in.Message.Body.Text.Data))

	plain := BuildEmail("a@b.c", "d@e.f", "s", "t", "")
	assert.Nil(t, plain.Message.Body.Html)
}

func TestBuildSMS(t *testing.T) {
	in := BuildSMS("+33123456789", "You have a new match")
	assert.Equal(t, "+33123456789", awssdk.ToString(in.PhoneNumber))
	assert.Equal(t, "Transactional", awssdk.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}
