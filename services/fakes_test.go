package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/config"
	"autoblog/events"
	"autoblog/generator"
	"autoblog/models"
	"autoblog/repositories"
)

// 인메모리 저장소. repositories 패키지의 Mongo 구현과 같은 의미를 흉내 낸다.

type fakeTopics struct {
	mu      sync.Mutex
	items   map[primitive.ObjectID]*models.Topic
	listErr error
	incErr  error
}

func newFakeTopics() *fakeTopics {
	return &fakeTopics{items: map[primitive.ObjectID]*models.Topic{}}
}

func (f *fakeTopics) add(owner primitive.ObjectID, name string, generated int64, priority int, status models.TopicStatus) *models.Topic {
	t := &models.Topic{
		ID:             primitive.NewObjectID(),
		OwnerID:        owner,
		Name:           name,
		Keywords:       []string{name + "-kw"},
		Categories:     []string{"cat-" + name},
		Priority:       priority,
		Status:         status,
		PostsGenerated: generated,
	}
	f.mu.Lock()
	f.items[t.ID] = t
	f.mu.Unlock()
	return t
}

func (f *fakeTopics) get(id primitive.ObjectID) models.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeTopics) Insert(_ context.Context, t *models.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.items {
		if o.OwnerID == t.OwnerID && o.Name == t.Name {
			return repositories.ErrDuplicate
		}
	}
	t.ID = primitive.NewObjectID()
	if t.Status == "" {
		t.Status = models.TopicActive
	}
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTopics) FindByID(_ context.Context, ownerID, id primitive.ObjectID) (*models.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok || t.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTopics) List(_ context.Context, q repositories.TopicQuery) ([]models.Topic, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Topic
	for _, t := range f.items {
		if t.OwnerID == q.OwnerID && (q.Status == "" || t.Status == q.Status) {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTopics) ListForGeneration(_ context.Context, ownerID primitive.ObjectID, limit int) ([]models.Topic, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Topic
	for _, t := range f.items {
		if t.OwnerID == ownerID && t.Status == models.TopicActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostsGenerated != out[j].PostsGenerated {
			return out[i].PostsGenerated < out[j].PostsGenerated
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTopics) UpdateFields(_ context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok || t.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "name":
			t.Name = v.(string)
		case "description":
			t.Description = v.(string)
		case "priority":
			t.Priority = v.(int)
		case "status":
			t.Status = v.(models.TopicStatus)
		case "keywords":
			t.Keywords = v.([]string)
		case "categories":
			t.Categories = v.([]string)
		}
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTopics) Delete(_ context.Context, ownerID, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok || t.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTopics) IncrementGenerated(_ context.Context, ownerID, id primitive.ObjectID, at time.Time) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok || t.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	t.PostsGenerated++
	t.LastGeneratedAt = &at
	return nil
}

func (f *fakeTopics) Count(_ context.Context, ownerID primitive.ObjectID, status models.TopicStatus) (int64, error) {
	_, n, err := f.List(context.Background(), repositories.TopicQuery{OwnerID: ownerID, Status: status})
	return n, err
}

type fakePosts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Post
	views map[primitive.ObjectID]int
}

func newFakePosts() *fakePosts {
	return &fakePosts{items: map[primitive.ObjectID]*models.Post{}, views: map[primitive.ObjectID]int{}}
}

func (f *fakePosts) all() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Post, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, *p)
	}
	return out
}

func (f *fakePosts) Insert(_ context.Context, p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.items {
		if o.OwnerID == p.OwnerID && o.Slug == p.Slug {
			return repositories.ErrDuplicate
		}
	}
	p.ID = primitive.NewObjectID()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePosts) FindByID(_ context.Context, ownerID, id primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) FindBySlug(_ context.Context, ownerID primitive.ObjectID, slug string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.OwnerID == ownerID && p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePosts) List(_ context.Context, q repositories.PostQuery) ([]models.Post, int64, error) {
	var out []models.Post
	for _, p := range f.all() {
		if p.OwnerID != q.OwnerID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.Status == "" && p.Status == models.PostDeleted {
			continue
		}
		if q.Category != "" && !containsFold(p.Categories, q.Category) {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePosts) ListPublished(_ context.Context, ownerID primitive.ObjectID, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range f.all() {
		if p.OwnerID == ownerID && p.Status == models.PostPublished {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(*out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) Related(_ context.Context, p *models.Post, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, o := range f.all() {
		if o.OwnerID != p.OwnerID || o.ID == p.ID || o.Status != models.PostPublished {
			continue
		}
		for _, c := range p.Categories {
			if containsFold(o.Categories, c) {
				out = append(out, o)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) Categories(_ context.Context, ownerID primitive.ObjectID) ([]repositories.CategoryCount, error) {
	counts := map[string]int64{}
	for _, p := range f.all() {
		if p.OwnerID == ownerID && p.Status == models.PostPublished {
			for _, c := range p.Categories {
				counts[c]++
			}
		}
	}
	out := make([]repositories.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, repositories.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePosts) UpdateFields(_ context.Context, ownerID, id primitive.ObjectID, set bson.M) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "status":
			p.Status = v.(models.PostStatus)
		case "published_at":
			if v == nil {
				p.PublishedAt = nil
			} else {
				at := v.(time.Time)
				p.PublishedAt = &at
			}
		case "title":
			p.Title = v.(string)
		case "content":
			p.Content = v.(string)
		case "excerpt":
			p.Excerpt = v.(string)
		case "word_count":
			p.WordCount = v.(int)
		case "reading_time":
			p.ReadingTime = v.(int)
		case "keywords":
			p.Keywords = v.([]string)
		case "categories":
			p.Categories = v.([]string)
		case "meta_title":
			p.MetaTitle = v.(string)
		case "meta_description":
			p.MetaDescription = v.(string)
		}
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (f *fakePosts) IncrementViewCount(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.items[id]; ok {
		p.ViewCount++
	}
	return nil
}

func (f *fakePosts) UnsetTopic(_ context.Context, ownerID, topicID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.items {
		if p.OwnerID == ownerID && p.TopicID != nil && *p.TopicID == topicID {
			p.TopicID = nil
			n++
		}
	}
	return n, nil
}

func (f *fakePosts) CountByStatus(_ context.Context, ownerID *primitive.ObjectID) (map[models.PostStatus]int64, error) {
	out := map[models.PostStatus]int64{}
	for _, p := range f.all() {
		if ownerID == nil || p.OwnerID == *ownerID {
			out[p.Status]++
		}
	}
	return out, nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

type fakeHistories struct {
	mu         sync.Mutex
	items      map[primitive.ObjectID]*models.GenerationHistory
	order      []primitive.ObjectID
	createErr  error
	markedLast []string
	// finalizeFails 번째 호출까지 Finalize 가 finalizeErr 로 실패한다.
	finalizeErr   error
	finalizeFails int
	finalizeCalls int
}

func newFakeHistories() *fakeHistories {
	return &fakeHistories{items: map[primitive.ObjectID]*models.GenerationHistory{}}
}

func (f *fakeHistories) Create(_ context.Context, h *models.GenerationHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = primitive.NewObjectID()
	h.Status = models.GenerationProcessing
	cp := *h
	f.items[h.ID] = &cp
	f.order = append(f.order, h.ID)
	return nil
}

func (f *fakeHistories) SetTopics(_ context.Context, id primitive.ObjectID, topicIDs []primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.items[id]; ok && h.Status == models.GenerationProcessing {
		h.TopicIDs = topicIDs
	}
	return nil
}

func (f *fakeHistories) Finalize(_ context.Context, id primitive.ObjectID, result models.GenerationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	if f.finalizeErr != nil && f.finalizeCalls <= f.finalizeFails {
		return f.finalizeErr
	}
	h, ok := f.items[id]
	if !ok || h.Status != models.GenerationProcessing {
		return repositories.ErrNotFound
	}
	now := time.Now()
	h.Status = result.Status
	h.SuccessCount = result.SuccessCount
	h.Error = result.Error
	if result.PostIDs != nil {
		h.PostIDs = result.PostIDs
	}
	h.CompletedAt = &now
	return nil
}

func (f *fakeHistories) MarkLatestProcessingFailed(_ context.Context, ownerID primitive.ObjectID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedLast = append(f.markedLast, reason)
	for i := len(f.order) - 1; i >= 0; i-- {
		h := f.items[f.order[i]]
		if h.OwnerID == ownerID && h.Status == models.GenerationProcessing {
			h.Status = models.GenerationFailed
			h.Error = reason
			return nil
		}
	}
	return nil
}

func (f *fakeHistories) FindByID(_ context.Context, ownerID, id primitive.ObjectID) (*models.GenerationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.items[id]
	if !ok || h.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHistories) List(_ context.Context, q repositories.HistoryQuery) ([]models.GenerationHistory, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GenerationHistory
	for _, id := range f.order {
		h := f.items[id]
		if h.OwnerID == q.OwnerID && (q.Status == "" || h.Status == q.Status) {
			out = append(out, *h)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeHistories) ListRecent(ctx context.Context, ownerID primitive.ObjectID, limit int) ([]models.GenerationHistory, error) {
	out, _, err := f.List(ctx, repositories.HistoryQuery{OwnerID: ownerID})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, err
}

func (f *fakeHistories) all() []models.GenerationHistory {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GenerationHistory, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.items[id])
	}
	return out
}

type fakeUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{items: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeUsers) put(u *models.User) *models.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.mu.Lock()
	cp := *u
	f.items[u.ID] = &cp
	f.mu.Unlock()
	return u
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) Insert(_ context.Context, u *models.User) error {
	if _, err := f.find(func(o *models.User) bool { return o.GithubID == u.GithubID || o.Email == u.Email }); err == nil {
		return repositories.ErrDuplicate
	}
	u.ID = primitive.NewObjectID()
	f.put(u)
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByGithubID(_ context.Context, githubID string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.GithubID == githubID })
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == strings.ToLower(email) })
}

func (f *fakeUsers) FindBySubdomain(_ context.Context, sub string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Subdomain == sub && u.IsActive })
}

func (f *fakeUsers) FindByCustomDomain(_ context.Context, domain string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.CustomDomain == domain && u.IsActive })
}

func (f *fakeUsers) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

func (f *fakeUsers) CountActive(_ context.Context) (int64, error) {
	users, err := f.ListActive(context.Background())
	return int64(len(users)), err
}

func (f *fakeUsers) UpdateFields(_ context.Context, id primitive.ObjectID, set bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "name":
			u.Name = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "github_id":
			u.GithubID = v.(string)
		case "last_login_at":
			at := v.(time.Time)
			u.LastLoginAt = &at
		case "settings":
			u.Settings = v.(models.UserSettings)
		case "role":
			u.Role = v.(string)
		case "is_active":
			u.IsActive = v.(bool)
		case "subdomain":
			u.Subdomain = v.(string)
		case "custom_domain":
			u.CustomDomain = v.(string)
		case "domain_status":
			u.DomainStatus = v.(models.DomainStatus)
		case "ssl_status":
			u.SSLStatus = v.(models.DomainStatus)
		case "domain_verified_at":
			if v == nil {
				u.DomainVerifiedAt = nil
			} else {
				at := v.(time.Time)
				u.DomainVerifiedAt = &at
			}
		case "domain_verify_attempts":
			u.DomainVerifyAttempts = v.(int)
		case "domain_error":
			u.DomainError = v.(string)
		}
	}
	return nil
}

func (f *fakeUsers) ClearCustomDomain(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.CustomDomain = ""
	u.DomainError = ""
	u.DomainVerifiedAt = nil
	u.DomainStatus = models.DomainActive
	u.DomainVerifyAttempts = 0
	return nil
}

func (f *fakeUsers) IncrementVerifyAttempts(_ context.Context, id primitive.ObjectID, status models.DomainStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil
	}
	u.DomainVerifyAttempts++
	u.DomainStatus = status
	u.DomainError = reason
	return nil
}

func (f *fakeUsers) List(_ context.Context, q repositories.UserQuery) ([]models.User, int64, error) {
	var out []models.User
	f.mu.Lock()
	for _, u := range f.items {
		if q.Role == "" || u.Role == q.Role {
			out = append(out, *u)
		}
	}
	f.mu.Unlock()
	return out, int64(len(out)), nil
}

func (f *fakeUsers) listWhere(match func(*models.User) bool) []models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.items {
		if match(u) {
			out = append(out, *u)
		}
	}
	return out
}

func (f *fakeUsers) ListAutoGenerate(_ context.Context) ([]models.User, error) {
	return f.listWhere(func(u *models.User) bool { return u.IsActive && u.Settings.Content.AutoGenerate }), nil
}

func (f *fakeUsers) ListActive(_ context.Context) ([]models.User, error) {
	return f.listWhere(func(u *models.User) bool { return u.IsActive }), nil
}

func (f *fakeUsers) ListPendingDomains(_ context.Context, maxAttempts int) ([]models.User, error) {
	return f.listWhere(func(u *models.User) bool {
		return u.CustomDomain != "" &&
			(u.DomainStatus == models.DomainPending || u.DomainStatus == models.DomainFailed) &&
			u.DomainVerifyAttempts < maxAttempts
	}), nil
}

type fakeSettings struct {
	mu sync.Mutex
	s  models.SystemSettings
}

func (f *fakeSettings) Get(_ context.Context) (*models.SystemSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.s
	cp.ID = models.SystemSettingsID
	return &cp, nil
}

func (f *fakeSettings) Save(_ context.Context, s *models.SystemSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = *s
	return nil
}

type fakeSitemaps struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Sitemap
}

func (f *fakeSitemaps) Upsert(_ context.Context, s *models.Sitemap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = map[primitive.ObjectID]models.Sitemap{}
	}
	f.items[s.OwnerID] = *s
	return nil
}

func (f *fakeSitemaps) FindByOwner(_ context.Context, ownerID primitive.ObjectID) (*models.Sitemap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[ownerID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

type recordedEvent struct {
	Type   events.EventType
	PostID primitive.ObjectID
	Hosts  []string
}

type fakeEvents struct {
	mu      sync.Mutex
	posts   []recordedEvent
	batches []events.BatchEvent
	domains []recordedEvent
}

func (f *fakeEvents) PublishPost(_ context.Context, t events.EventType, _, postID primitive.ObjectID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, recordedEvent{Type: t, PostID: postID})
	return nil
}

func (f *fakeEvents) PublishBatch(_ context.Context, e events.BatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, e)
	return nil
}

func (f *fakeEvents) PublishDomain(_ context.Context, t events.EventType, _ primitive.ObjectID, hosts []string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains = append(f.domains, recordedEvent{Type: t, Hosts: hosts})
	return nil
}

func (f *fakeEvents) postTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.posts))
	for _, e := range f.posts {
		out = append(out, e.Type)
	}
	return out
}

// fakeGenerator 는 주제 이름으로 초안을 만든다. fail 에 든 주제는 실패한다.
type fakeGenerator struct {
	mu       sync.Mutex
	fail     map[string]bool
	title    string
	slug     string
	delay    time.Duration
	calls    []string
	inFlight int
	maxSeen  int
}

func (f *fakeGenerator) Provider() string { return "fake" }

func (f *fakeGenerator) Slug(title string) string { return generator.NewSlugger().Make(title) }

func (f *fakeGenerator) Generate(ctx context.Context, topic *models.Topic, s generator.Settings) (*generator.Draft, error) {
	f.mu.Lock()
	f.calls = append(f.calls, topic.Name)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[topic.Name] {
		return nil, errors.Join(generator.ErrGenerationFailed, errors.New("upstream 500"))
	}
	title := f.title
	if title == "" {
		title = topic.Name + " guide"
	}
	slug := f.slug
	if slug == "" {
		slug = f.Slug(title)
	}
	content := "# " + title + "\n\nIntro paragraph.\n\n## Part\n\nbody"
	return &generator.Draft{
		Title:           title,
		Slug:            slug,
		Content:         content,
		Excerpt:         "Intro paragraph.",
		MetaDescription: "Intro paragraph.",
		WordCount:       generator.CountWords(content),
		ReadingTime:     1,
		Provider:        "fake",
		Model:           s.Model,
	}, nil
}

func (f *fakeGenerator) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// fixedSlugs 는 항상 같은 slug 를 돌려준다. 충돌 재시도 소진을 검증할 때 쓴다.
type fixedSlugs string

func (s fixedSlugs) Make(string) string { return string(s) }

func testAppConfig() config.AppConfig {
	return config.AppConfig{
		Env: config.EnvProduction,
		LLM: config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 4000},
		Generation: config.GenerationConfig{
			PostsPerBatch:  2,
			MinWords:       800,
			MaxWords:       1500,
			MaxConcurrency: 3,
			RecentPosts:    5,
		},
		Domain: config.DomainConfig{
			BaseDomain:             "blogs.example.com",
			CNAMETarget:            "edge.blogs.example.com",
			MaxVerificationRetries: 3,
		},
		Scheduler: config.SchedulerConfig{Timezone: "Asia/Shanghai", DefaultCron: "0 3 * * *"},
		Sitemap:   config.SitemapConfig{Enabled: true},
	}
}

func newTenant(users *fakeUsers) *models.User {
	u := &models.User{
		Email:        primitive.NewObjectID().Hex() + "@example.com",
		Name:         "tenant",
		Role:         models.RoleUser,
		IsActive:     true,
		DomainStatus: models.DomainActive,
		Settings:     models.DefaultUserSettings("tenant"),
	}
	if users != nil {
		return users.put(u)
	}
	u.ID = primitive.NewObjectID()
	return u
}
