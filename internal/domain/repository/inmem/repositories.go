package inmem

import (
	"context"
	"sort"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
)

// --- users ---

type userRepository struct{ s *Store }

func NewUserRepository(s *Store) repository.UserRepository { return &userRepository{s: s} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return common.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	user := u
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := []model.User{}
	for _, u := range r.s.users {
		u.HashedPassword = nil
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

func (r *userRepository) UpdateCurrentTopic(ctx context.Context, userID string, topicID *string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.CurrentTopicID = topicID
	u.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = u
	user := u
	return &user, nil
}

func (r *userRepository) AssignedSubjects(ctx context.Context, userID string) ([]model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	subjects := []model.Subject{}
	for _, sid := range r.s.userSubjects[userID] {
		subj, ok := r.s.subjects[sid]
		if !ok {
			continue
		}
		if cat, ok := r.s.categories[subj.CategoryID]; ok {
			category := cat
			subj.Category = &category
		}
		subjects = append(subjects, subj)
	}
	return subjects, nil
}

func (r *userRepository) AddAssignedSubject(ctx context.Context, userID, subjectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sid := range r.s.userSubjects[userID] {
		if sid == subjectID {
			return nil
		}
	}
	r.s.userSubjects[userID] = append(r.s.userSubjects[userID], subjectID)
	return nil
}

func (r *userRepository) RemoveAssignedSubject(ctx context.Context, userID, subjectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := []string{}
	for _, sid := range r.s.userSubjects[userID] {
		if sid != subjectID {
			kept = append(kept, sid)
		}
	}
	r.s.userSubjects[userID] = kept
	return nil
}

func (r *userRepository) SearchIDs(ctx context.Context, fragment string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, u := range r.s.users {
		if containsFold(u.Username, fragment) || containsFold(u.Email, fragment) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// --- categories ---

type categoryRepository struct{ s *Store }

func NewCategoryRepository(s *Store) repository.CategoryRepository { return &categoryRepository{s: s} }

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.categories[c.ID] = *c
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	categories := []model.Category{}
	for _, c := range r.s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, id, name string) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c.Name = name
	r.s.categories[id] = c
	category := c
	return &category, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.s.categories, id)
	category := c
	return &category, nil
}

// --- subjects ---

type subjectRepository struct{ s *Store }

func NewSubjectRepository(s *Store) repository.SubjectRepository { return &subjectRepository{s: s} }

func (r *subjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.subjects[subject.ID] = *subject
	return nil
}

func (r *subjectRepository) FindByID(ctx context.Context, id string) (*model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	subj, ok := r.s.subjects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	subject := subj
	return &subject, nil
}

func (r *subjectRepository) List(ctx context.Context, categoryID string) ([]model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	subjects := []model.Subject{}
	for _, subj := range r.s.subjects {
		if categoryID != "" && subj.CategoryID != categoryID {
			continue
		}
		if cat, ok := r.s.categories[subj.CategoryID]; ok {
			category := cat
			subj.Category = &category
		}
		subjects = append(subjects, subj)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (r *subjectRepository) Update(ctx context.Context, id string, name, categoryID *string) (*model.Subject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	subj, ok := r.s.subjects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if name != nil {
		subj.Name = *name
	}
	if categoryID != nil {
		subj.CategoryID = *categoryID
	}
	r.s.subjects[id] = subj
	subject := subj
	return &subject, nil
}

func (r *subjectRepository) Delete(ctx context.Context, id string) (*model.Subject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	subj, ok := r.s.subjects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.s.subjects, id)
	subject := subj
	return &subject, nil
}

func (r *subjectRepository) FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, subj := range r.s.subjects {
		if containsFold(subj.Name, fragment) {
			ids = append(ids, subj.ID)
		}
	}
	return ids, nil
}

func (r *subjectRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.subjects), nil
}

// --- topics ---

type topicRepository struct{ s *Store }

func NewTopicRepository(s *Store) repository.TopicRepository { return &topicRepository{s: s} }

func (r *topicRepository) Create(ctx context.Context, t *model.Topic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.topics[t.ID] = *t
	return nil
}

func (r *topicRepository) FindByID(ctx context.Context, id string) (*model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.topics[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if subj, ok := r.s.subjects[t.SubjectID]; ok {
		subject := subj
		t.Subject = &subject
	}
	topic := t
	return &topic, nil
}

func (r *topicRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Topic, error) {
	return r.ListBySubjects(ctx, []string{subjectID})
}

func (r *topicRepository) ListBySubjects(ctx context.Context, subjectIDs []string) ([]model.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.topicsBySubjectsLocked(subjectIDs), nil
}

func (r *topicRepository) Update(ctx context.Context, id string, name, content *string, status *model.TopicStatus) (*model.Topic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.topics[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if name != nil {
		t.Name = *name
	}
	if content != nil {
		t.Content = *content
	}
	if status != nil {
		t.Status = *status
	}
	r.s.topics[id] = t
	topic := t
	return &topic, nil
}

func (r *topicRepository) Delete(ctx context.Context, id string) (*model.Topic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.topics[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.s.topics, id)
	topic := t
	return &topic, nil
}

func (r *topicRepository) FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, t := range r.s.topics {
		if containsFold(t.Name, fragment) {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (r *topicRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.topics), nil
}

func (r *topicRepository) ReplaceContent(ctx context.Context, topicID, content string, assignments []model.CourseAssignment, problems []model.Problem) (*model.Topic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.topics[topicID]
	if !ok {
		return nil, common.ErrNotFound
	}

	// Stage every step; nothing is applied until all of them succeed.
	staged := t
	staged.Content = content

	if r.s.FailReplaceAssignments != nil {
		return nil, r.s.FailReplaceAssignments
	}
	stagedAssignments := []model.CourseAssignment{}
	for _, a := range r.s.assignments {
		if a.TopicID == nil || *a.TopicID != topicID {
			stagedAssignments = append(stagedAssignments, a)
		}
	}
	tid := topicID
	for _, a := range assignments {
		a.TopicID = &tid
		if a.AssignedAt.IsZero() {
			a.AssignedAt = time.Now().UTC()
		}
		stagedAssignments = append(stagedAssignments, a)
	}

	if r.s.FailReplaceProblems != nil {
		return nil, r.s.FailReplaceProblems
	}
	stagedProblems := map[string]model.Problem{}
	for id, p := range r.s.problems {
		if p.TopicID != topicID {
			stagedProblems[id] = p
		}
	}
	for _, p := range problems {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.TopicID = topicID
		stagedProblems[p.ID] = p
	}

	r.s.topics[topicID] = staged
	r.s.assignments = stagedAssignments
	r.s.problems = stagedProblems
	topic := staged
	return &topic, nil
}

// --- problems ---

type problemRepository struct{ s *Store }

func NewProblemRepository(s *Store) repository.ProblemRepository { return &problemRepository{s: s} }

func (r *problemRepository) Create(ctx context.Context, p *model.Problem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.problems[p.ID] = *p
	return nil
}

func (r *problemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	problem := p
	return &problem, nil
}

func (r *problemRepository) FindByIDWithChain(ctx context.Context, id string) (*model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p := r.s.chainLocked(id)
	if p == nil {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (r *problemRepository) List(ctx context.Context, topicIDs []string) ([]model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var wanted map[string]bool
	if topicIDs != nil {
		wanted = map[string]bool{}
		for _, id := range topicIDs {
			wanted[id] = true
		}
	}
	problems := []model.Problem{}
	for _, p := range r.s.problems {
		if wanted != nil && !wanted[p.TopicID] {
			continue
		}
		if t, ok := r.s.topics[p.TopicID]; ok {
			p.Topic = &model.Topic{ID: t.ID, Name: t.Name, SubjectID: t.SubjectID}
		}
		problems = append(problems, p)
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Title < problems[j].Title })
	return problems, nil
}

func (r *problemRepository) ListByTopic(ctx context.Context, topicID string) ([]model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.problemsByTopicLocked(topicID), nil
}

func (r *problemRepository) ListIDsByTopic(ctx context.Context, topicID string) ([]string, error) {
	return r.ListIDsByTopics(ctx, []string{topicID})
}

func (r *problemRepository) ListIDsByTopics(ctx context.Context, topicIDs []string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for _, tid := range topicIDs {
		for _, p := range r.s.problemsByTopicLocked(tid) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (r *problemRepository) Update(ctx context.Context, id string, upd repository.ProblemUpdate) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.TopicID != nil {
		p.TopicID = *upd.TopicID
	}
	if upd.Difficulty != nil {
		p.Difficulty = *upd.Difficulty
	}
	if upd.Link != nil {
		p.Link = *upd.Link
	}
	if upd.LeetcodeLink != nil {
		p.LeetcodeLink = *upd.LeetcodeLink
	}
	if upd.YtLink != nil {
		p.YtLink = *upd.YtLink
	}
	r.s.problems[id] = p
	problem := p
	return &problem, nil
}

func (r *problemRepository) Delete(ctx context.Context, id string) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.s.problems, id)
	problem := p
	return &problem, nil
}

func (r *problemRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.problems), nil
}
