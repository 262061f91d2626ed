package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/api"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/authz"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/awsutil"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/config"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/directory"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/logger"
)

// app holds the wired client for one invocation.
type app struct {
	env     config.Env
	log     *slog.Logger
	tokens  authz.TokenSource
	api     *api.Client
	storage *http.Client
	dir     *directory.Directory
}

func (a *app) init(ctx context.Context, logOut io.Writer) error {
	env, err := config.Load()
	if err != nil {
		return err
	}
	a.env = env
	a.log = logger.New(logOut, "claims", env.LogLevel)

	a.tokens, err = tokenSource(ctx, env)
	if err != nil {
		return err
	}

	a.storage = &http.Client{}
	a.api, err = api.New(env.APIBaseURL, authz.NewAccessor(a.tokens, env.DevUserSub),
		api.WithHTTPClient(&http.Client{}),
		api.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	a.dir = directory.New(a.api, directory.WithLogger(a.log), directory.WithOwnerCheck(a.tokens))
	return nil
}

// tokenSource prefers a Cognito refresh-token session and falls back to a
// fixed ID token.
func tokenSource(ctx context.Context, env config.Env) (authz.TokenSource, error) {
	if !env.UseCognito() {
		return authz.StaticToken(env.IDToken), nil
	}
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return authz.NewCognitoSession(awsutil.NewCognito(cfg, endpoint), env.CognitoClientID, env.CognitoRefreshToken), nil
}
