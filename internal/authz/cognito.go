package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// expirySkew renews the ID token this long before it actually expires.
const expirySkew = time.Minute

// InitiateAuthAPI is the slice of the Cognito client the session needs.
type InitiateAuthAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// CognitoSession exchanges a refresh token for ID tokens, reusing the
// current one until it is about to expire.
type CognitoSession struct {
	api          InitiateAuthAPI
	clientID     string
	refreshToken string
	now          func() time.Time

	mu      sync.Mutex
	idToken string
	expires time.Time
}

// NewCognitoSession builds a session for the given user pool app client.
func NewCognitoSession(api InitiateAuthAPI, clientID, refreshToken string) *CognitoSession {
	return &CognitoSession{api: api, clientID: clientID, refreshToken: refreshToken, now: time.Now}
}

// Token returns a valid ID token, refreshing it through Cognito when needed.
func (s *CognitoSession) Token(ctx context.Context) (string, error) {
	if s.refreshToken == "" || s.clientID == "" {
		return "", apierr.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idToken != "" && s.now().Add(expirySkew).Before(s.expires) {
		return s.idToken, nil
	}

	out, err := s.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(s.clientID),
		AuthParameters: map[string]string{"REFRESH_TOKEN": s.refreshToken},
	})
	if err != nil {
		var nae *types.NotAuthorizedException
		if errors.As(err, &nae) {
			s.idToken = ""
			return "", fmt.Errorf("%w: %s", apierr.ErrUnauthenticated, aws.ToString(nae.Message))
		}
		return "", fmt.Errorf("cognito initiate auth: %w", err)
	}
	if out.AuthenticationResult == nil || aws.ToString(out.AuthenticationResult.IdToken) == "" {
		return "", apierr.ErrUnauthenticated
	}

	tok := aws.ToString(out.AuthenticationResult.IdToken)
	exp, ok := ExpiresAt(tok)
	if !ok {
		exp = s.now().Add(time.Duration(out.AuthenticationResult.ExpiresIn) * time.Second)
	}
	s.idToken, s.expires = tok, exp
	return tok, nil
}
