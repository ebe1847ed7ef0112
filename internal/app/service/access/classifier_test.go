package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCreateError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want CreateOutcome
	}{
		{"nil means created", nil, OutcomeCreated},
		{"already exists", errors.New("User already exists"), OutcomeExisting},
		{"email already registered", errors.New("the Email Already Registered on platform"), OutcomeExisting},
		{"user exists", errors.New("user exists"), OutcomeExisting},
		{"email duplicate", errors.New("email duplicate for account"), OutcomeExisting},
		{"already registered", errors.New("this email is Already Registered"), OutcomeExisting},
		{"email is already", errors.New("email is already in use"), OutcomeExisting},
		{"user already", errors.New("User Already linked"), OutcomeExisting},
		{"timeout is unknown", errors.New("context deadline exceeded"), OutcomeUnknown},
		{"http 500 is unknown", errors.New("themembers api status 500"), OutcomeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyCreateError(tc.err))
		})
	}
}
