package service

import (
	"arenta/marketplace/internal/model"
	"arenta/marketplace/internal/pkg/apperr"
	"arenta/marketplace/internal/repository"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, apperr.Validation("invalid user ID")
	}
	return s.userRepo.FindByID(id)
}

func (s *userService) GetProfile(id uint) (model.UserProfile, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return model.UserProfile{}, err
	}
	return user.Profile(), nil
}

func (s *userService) GetProfileByUsername(username string) (model.UserProfile, error) {
	if username == "" {
		return model.UserProfile{}, apperr.Validation("username cannot be empty")
	}
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return model.UserProfile{}, err
	}
	return user.Profile(), nil
}
