package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gtind/internal/refdata/models"
	"gtind/internal/refdata/store"
	dErrors "gtind/pkg/domain-errors"
)

type RefDataSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func (s *RefDataSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.ctx = context.Background()
}

func TestRefDataSuite(t *testing.T) {
	suite.Run(t, new(RefDataSuite))
}

func (s *RefDataSuite) TestSeedIsIdempotent() {
	s.Require().NoError(s.service.Seed(s.ctx))

	items, err := s.service.List(s.ctx, "", false)
	s.Require().NoError(err)
	s.NotEmpty(items)
	first := len(items)

	// Deactivate one item, then seed again: nothing may change.
	items[0].IsActive = false
	_, err = s.service.Save(s.ctx, items[0])
	s.Require().NoError(err)

	s.Require().NoError(s.service.Seed(s.ctx))
	after, err := s.service.List(s.ctx, "", false)
	s.Require().NoError(err)
	s.Len(after, first)
}

func (s *RefDataSuite) TestSeedVocabulary() {
	s.Require().NoError(s.service.Seed(s.ctx))

	packaging, err := s.service.List(s.ctx, models.CategoryPackaging, true)
	s.Require().NoError(err)
	labels := make([]string, 0, len(packaging))
	for _, item := range packaging {
		labels = append(labels, item.LabelNL)
	}
	s.Contains(labels, "Doos")
	s.Contains(labels, "Blisterverpakking")

	countries, err := s.service.List(s.ctx, models.CategoryTargetCountry, true)
	s.Require().NoError(err)
	for _, c := range countries {
		s.Require().NotNil(c.Code, "country %s must carry a code", c.LabelNL)
	}
}

func (s *RefDataSuite) TestSaveValidation() {
	s.Run("country without code rejected", func() {
		_, err := s.service.Save(s.ctx, &models.Item{
			Category: models.CategoryTargetCountry,
			LabelNL:  "Frankrijk",
			LabelEN:  "France",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("packaging with code rejected", func() {
		code := "XX"
		_, err := s.service.Save(s.ctx, &models.Item{
			Category: models.CategoryPackaging,
			LabelNL:  "Krat",
			LabelEN:  "Crate",
			Code:     &code,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown category rejected", func() {
		_, err := s.service.Save(s.ctx, &models.Item{
			Category: "flavour",
			LabelNL:  "Zoet",
			LabelEN:  "Sweet",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *RefDataSuite) TestValidateSubmission() {
	s.Require().NoError(s.service.Seed(s.ctx))

	s.Run("active labels accepted", func() {
		s.NoError(s.service.ValidateSubmission(s.ctx, "Doos", "Stuks"))
	})

	s.Run("unknown packaging rejected", func() {
		err := s.service.ValidateSubmission(s.ctx, "Krat", "Stuks")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidationFailed))
	})

	s.Run("inactive label rejected", func() {
		items, err := s.service.List(s.ctx, models.CategoryPackaging, false)
		s.Require().NoError(err)
		var doos *models.Item
		for _, item := range items {
			if item.LabelNL == "Doos" {
				doos = item
			}
		}
		s.Require().NotNil(doos)
		doos.IsActive = false
		_, err = s.service.Save(s.ctx, doos)
		s.Require().NoError(err)

		err = s.service.ValidateSubmission(s.ctx, "Doos", "Stuks")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidationFailed))
	})
}

func (s *RefDataSuite) TestMappings() {
	id, err := s.service.SaveMapping(s.ctx, &models.CategoryMapping{
		CategoryRef: "cat-shoes",
		GPCCode:     "10001234",
		GPCTitle:    "Footwear",
	})
	s.Require().NoError(err)
	s.NotZero(id)

	s.Run("unique per category ref", func() {
		again, err := s.service.SaveMapping(s.ctx, &models.CategoryMapping{
			CategoryRef: "cat-shoes",
			GPCCode:     "10005678",
			GPCTitle:    "Footwear (updated)",
		})
		s.Require().NoError(err)
		s.Equal(id, again)

		m, err := s.service.Mapping(s.ctx, "cat-shoes")
		s.Require().NoError(err)
		s.Equal("10005678", m.GPCCode)
	})

	s.Run("missing mapping is not found", func() {
		_, err := s.service.Mapping(s.ctx, "cat-unknown")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
