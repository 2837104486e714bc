package handler

import (
	"context"
	"mime/multipart"

	"postify/internal/model"
	"postify/internal/service"
)

// The handlers depend on these narrow views of the services so they can be
// exercised with in-memory fakes.

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	CheckUsername(ctx context.Context, name string) (*model.UsernameCheckResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	SetProfilePicture(ctx context.Context, userID int64, url string) (*model.User, error)
}

type AuthService interface {
	GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error)
	RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

type PostService interface {
	List(ctx context.Context, userID int64) ([]model.Post, error)
	Get(ctx context.Context, userID, postID int64) (*model.Post, error)
	Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error)
	Update(ctx context.Context, userID, postID int64, req model.UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, userID, postID int64) error
}

type BlogService interface {
	GetProfile(ctx context.Context, username string) (*model.PublicProfile, error)
	ListPosts(ctx context.Context, username string, limit, offset int) ([]model.Post, error)
	GetPost(ctx context.Context, username, slug string) (*model.Post, error)
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) (*model.UploadResponse, error)
	UploadAvatar(ctx context.Context, userID int64, header *multipart.FileHeader) (*model.UploadResult, error)
}

type BillingService interface {
	Checkout(ctx context.Context, userID int64, plan model.Plan) (*model.CheckoutResponse, error)
	Portal(ctx context.Context, userID int64) (*model.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

var (
	_ UserService    = (*service.UserService)(nil)
	_ AuthService    = (*service.AuthService)(nil)
	_ PostService    = (*service.PostService)(nil)
	_ BlogService    = (*service.BlogService)(nil)
	_ MediaService   = (*service.MediaService)(nil)
	_ BillingService = (*service.BillingService)(nil)
)
