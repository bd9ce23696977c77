package batch_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/recipient-mailer/internal/batch"
	"github.com/example/recipient-mailer/internal/common"
)

func TestReportErrNilWithoutFailures(t *testing.T) {
	var nilReport *batch.Report
	assert.NoError(t, nilReport.Err())
	assert.NoError(t, (&batch.Report{Total: 2, Sent: 2}).Err())
}

func TestBatchErrorUnwrapsEveryFailure(t *testing.T) {
	cause := errors.New("550 mailbox unavailable")
	report := &batch.Report{
		Total: 3,
		Failures: []batch.Failure{
			{Index: 0, Total: 3, Kind: common.ErrAddress, Err: common.Wrap(common.ErrAddress, errors.New("invalid recipient email address"))},
			{Index: 2, Total: 3, Kind: common.ErrSend, Err: common.Wrap(common.ErrSend, cause)},
		},
	}

	err := report.Err()
	require.Error(t, err)
	assert.Equal(t, "batch: 2 recipient(s) failed", err.Error())
	assert.ErrorIs(t, err, common.ErrAddress)
	assert.ErrorIs(t, err, common.ErrSend)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, common.ErrMessageBuild)
	assert.False(t, common.IsFatal(err))

	var failure batch.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 0, failure.Index)
}

func TestWriteSummary(t *testing.T) {
	report := &batch.Report{
		Total: 2,
		Failures: []batch.Failure{
			{Index: 1, Total: 2, Kind: common.ErrAddress, Err: errors.New("invalid recipient email address")},
		},
	}

	var out bytes.Buffer
	report.WriteSummary(&out)
	assert.Equal(t, "Encountered 1 error(s):\n  - recipient 2/2: invalid recipient email address\n", out.String())

	out.Reset()
	(&batch.Report{}).WriteSummary(&out)
	assert.Empty(t, out.String())
}
