package services

import (
	"context"
	"time"

	"hot-server/cache"
	"hot-server/models"
	"hot-server/store"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const dateJoinedLayout = "January 2, 2006"

type UserService struct {
	users  store.Collection[models.User]
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(cols *store.Collections, c cache.Cache, logger *zap.Logger) *UserService {
	return &UserService{
		users:  cols.Users,
		cache:  c,
		logger: logger.Named("users"),
		now:    time.Now,
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// GetUser retrieves a user from the cache or the store.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := store.ParseID(userID)
	if err != nil {
		return nil, err
	}

	user := new(models.User)
	if ok, err := s.cache.Get(ctx, cache.UserKey(id), user); err != nil {
		s.logger.Warn("read user from cache", zap.String("user", userID), zap.Error(err))
	} else if ok {
		return user, nil
	}

	user, err = s.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.UserKey(id), user); err != nil {
		s.logger.Warn("cache user", zap.String("user", userID), zap.Error(err))
	}
	return user, nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, errors.Wrap(ErrMissingField, "username")
	}
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.Wrap(ErrMissingField, "email")
	}
	return s.findOne(ctx, bson.M{"email": email})
}

// CreateUser stores user with a bcrypt hash of password and returns its id.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (primitive.ObjectID, error) {
	if user.Username == "" {
		return primitive.NilObjectID, errors.Wrap(ErrMissingField, "username")
	}
	if password == "" {
		return primitive.NilObjectID, errors.Wrap(ErrMissingField, "password")
	}

	doc := *user
	doc.ID = primitive.NilObjectID
	if err := s.setPassword(&doc, password); err != nil {
		return primitive.NilObjectID, err
	}
	if doc.DateJoined == "" {
		doc.DateJoined = s.now().Format(dateJoinedLayout)
	}
	if doc.Friends == nil {
		doc.Friends = []string{}
	}

	id, err := s.users.Insert(ctx, &doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "create user %q", user.Username)
	}
	s.logger.Info("created user", zap.String("user", id.Hex()), zap.String("username", user.Username))
	return id, nil
}

// UpdateUser replaces the stored user. An empty password keeps the current hash.
func (s *UserService) UpdateUser(ctx context.Context, user *models.User, password string) error {
	if user.ID.IsZero() {
		return errors.Wrap(ErrMissingField, "_id")
	}

	doc := *user
	if password != "" {
		if err := s.setPassword(&doc, password); err != nil {
			return err
		}
	} else {
		current, err := s.findOne(ctx, bson.M{"_id": user.ID})
		if err != nil {
			return err
		}
		doc.Password = current.Password
	}

	n, err := s.users.Replace(ctx, bson.M{"_id": user.ID}, &doc)
	if err != nil {
		return errors.Wrapf(err, "update user %s", user.ID.Hex())
	}
	s.invalidate(ctx, user.ID)
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user. Join records and friend lists pointing at it
// are left in place; readers skip dangling ids.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	id, err := store.ParseID(userID)
	if err != nil {
		return err
	}

	n, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete user %s", userID)
	}
	s.invalidate(ctx, id)
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	user, err := s.users.FindOne(ctx, filter)
	if store.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

func (s *UserService) setPassword(user *models.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// HashPassword returns the bcrypt hash stored in place of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func (s *UserService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := s.cache.Delete(ctx, cache.UserKey(id)); err != nil {
		s.logger.Warn("invalidate cached user", zap.String("user", id.Hex()), zap.Error(err))
	}
}
