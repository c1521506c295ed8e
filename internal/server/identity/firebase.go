package identity

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/usersync/internal/common"
	identitytoolkit "google.golang.org/api/identitytoolkit/v1"
	"google.golang.org/api/option"
)

// FirebaseProvider reads accounts through the Identity Toolkit v1 REST API,
// the same endpoints the Firebase Admin SDK uses.
type FirebaseProvider struct {
	svc       *identitytoolkit.Service
	projectID string
}

// NewFirebaseProvider creates a provider for projectID. Credentials come from
// opts, for example option.WithCredentialsFile.
func NewFirebaseProvider(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirebaseProvider, error) {
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit init error: %w", err)
	}
	return &FirebaseProvider{svc: svc, projectID: projectID}, nil
}

// ListUsers downloads one page of at most pageSize accounts starting at token.
func (p *FirebaseProvider) ListUsers(ctx context.Context, pageSize int, token string) (*Page, error) {
	call := p.svc.Projects.Accounts_.BatchGet(p.projectID).
		MaxResults(int64(pageSize)).
		Context(ctx)
	if token != "" {
		call = call.NextPageToken(token)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list users error: %w", err)
	}

	page := &Page{NextToken: resp.NextPageToken, Users: make([]Identity, 0, len(resp.Users))}
	for _, u := range resp.Users {
		if u == nil {
			continue
		}
		page.Users = append(page.Users, Identity{ID: u.LocalId, Email: u.Email})
	}
	return page, nil
}

func (p *FirebaseProvider) GetUser(ctx context.Context, id string) (*Identity, error) {
	return p.lookup(ctx, &identitytoolkit.GoogleCloudIdentitytoolkitV1GetAccountInfoRequest{
		TargetProjectId: p.projectID,
		LocalId:         []string{id},
	})
}

func (p *FirebaseProvider) GetUserByEmail(ctx context.Context, email string) (*Identity, error) {
	return p.lookup(ctx, &identitytoolkit.GoogleCloudIdentitytoolkitV1GetAccountInfoRequest{
		TargetProjectId: p.projectID,
		Email:           []string{email},
	})
}

func (p *FirebaseProvider) lookup(ctx context.Context, req *identitytoolkit.GoogleCloudIdentitytoolkitV1GetAccountInfoRequest) (*Identity, error) {
	resp, err := p.svc.Accounts.Lookup(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("lookup user error: %w", err)
	}
	if len(resp.Users) == 0 || resp.Users[0] == nil {
		return nil, common.ErrorNotFound
	}
	u := resp.Users[0]
	return &Identity{ID: u.LocalId, Email: u.Email}, nil
}
