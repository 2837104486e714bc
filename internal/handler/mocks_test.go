package handler

import (
	"context"
	"mime/multipart"

	"postify/internal/model"
)

// ===== UserService =====

type mockUserService struct {
	registerFn          func(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	loginFn             func(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	getByIDFn           func(ctx context.Context, id int64) (*model.User, error)
	checkUsernameFn     func(ctx context.Context, name string) (*model.UsernameCheckResponse, error)
	updateProfileFn     func(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	setProfilePictureFn func(ctx context.Context, userID int64, url string) (*model.User, error)

	pictureURLs []string
}

func (m *mockUserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	return m.registerFn(ctx, req)
}

func (m *mockUserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	return m.loginFn(ctx, req)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockUserService) CheckUsername(ctx context.Context, name string) (*model.UsernameCheckResponse, error) {
	return m.checkUsernameFn(ctx, name)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, req)
}

func (m *mockUserService) SetProfilePicture(ctx context.Context, userID int64, url string) (*model.User, error) {
	m.pictureURLs = append(m.pictureURLs, url)
	if m.setProfilePictureFn != nil {
		return m.setProfilePictureFn(ctx, userID, url)
	}
	return &model.User{ID: userID, ProfilePicture: &url}, nil
}

// ===== AuthService =====

type mockAuthService struct {
	refreshFn func(ctx context.Context, raw string) (*model.TokenPair, int64, error)
	revokeFn  func(ctx context.Context, raw string) error

	issuedFor  []int64
	revokedAll []int64
}

func (m *mockAuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	m.issuedFor = append(m.issuedFor, userID)
	return &model.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
}

func (m *mockAuthService) RefreshTokens(ctx context.Context, raw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error) {
	return m.refreshFn(ctx, raw)
}

func (m *mockAuthService) RevokeRefreshToken(ctx context.Context, raw string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, raw)
	}
	return nil
}

func (m *mockAuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

// ===== PostService =====

type mockPostService struct {
	listFn   func(ctx context.Context, userID int64) ([]model.Post, error)
	getFn    func(ctx context.Context, userID, postID int64) (*model.Post, error)
	createFn func(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error)
	updateFn func(ctx context.Context, userID, postID int64, req model.UpdatePostRequest) (*model.Post, error)
	deleteFn func(ctx context.Context, userID, postID int64) error
}

func (m *mockPostService) List(ctx context.Context, userID int64) ([]model.Post, error) {
	return m.listFn(ctx, userID)
}

func (m *mockPostService) Get(ctx context.Context, userID, postID int64) (*model.Post, error) {
	return m.getFn(ctx, userID, postID)
}

func (m *mockPostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	return m.createFn(ctx, userID, req)
}

func (m *mockPostService) Update(ctx context.Context, userID, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	return m.updateFn(ctx, userID, postID, req)
}

func (m *mockPostService) Delete(ctx context.Context, userID, postID int64) error {
	return m.deleteFn(ctx, userID, postID)
}

// ===== BlogService =====

type mockBlogService struct {
	getProfileFn func(ctx context.Context, username string) (*model.PublicProfile, error)
	listPostsFn  func(ctx context.Context, username string, limit, offset int) ([]model.Post, error)
	getPostFn    func(ctx context.Context, username, slug string) (*model.Post, error)
}

func (m *mockBlogService) GetProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	return m.getProfileFn(ctx, username)
}

func (m *mockBlogService) ListPosts(ctx context.Context, username string, limit, offset int) ([]model.Post, error) {
	return m.listPostsFn(ctx, username, limit, offset)
}

func (m *mockBlogService) GetPost(ctx context.Context, username, slug string) (*model.Post, error) {
	return m.getPostFn(ctx, username, slug)
}

// ===== MediaService =====

type mockMediaService struct {
	uploadFn       func(ctx context.Context, userID int64, files []*multipart.FileHeader) (*model.UploadResponse, error)
	uploadAvatarFn func(ctx context.Context, userID int64, header *multipart.FileHeader) (*model.UploadResult, error)

	uploadCalls int
}

func (m *mockMediaService) Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) (*model.UploadResponse, error) {
	m.uploadCalls++
	return m.uploadFn(ctx, userID, files)
}

func (m *mockMediaService) UploadAvatar(ctx context.Context, userID int64, header *multipart.FileHeader) (*model.UploadResult, error) {
	return m.uploadAvatarFn(ctx, userID, header)
}

// ===== BillingService =====

type mockBillingService struct {
	checkoutFn func(ctx context.Context, userID int64, plan model.Plan) (*model.CheckoutResponse, error)
	portalFn   func(ctx context.Context, userID int64) (*model.CheckoutResponse, error)
	webhookFn  func(ctx context.Context, payload []byte, signature string) error

	checkoutCalls int
}

func (m *mockBillingService) Checkout(ctx context.Context, userID int64, plan model.Plan) (*model.CheckoutResponse, error) {
	m.checkoutCalls++
	return m.checkoutFn(ctx, userID, plan)
}

func (m *mockBillingService) Portal(ctx context.Context, userID int64) (*model.CheckoutResponse, error) {
	return m.portalFn(ctx, userID)
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.webhookFn(ctx, payload, signature)
}
