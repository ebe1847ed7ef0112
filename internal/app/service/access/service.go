package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/internal/platform/themembers"
	"github.com/cursopassei/checkout/pkg/config"
	"github.com/cursopassei/checkout/pkg/logctx"
	"github.com/cursopassei/checkout/pkg/tool"
	"github.com/cursopassei/checkout/pkg/types"
)

// MembershipAPI is the slice of the TheMembers client the grant flow
// needs.
type MembershipAPI interface {
	CreateUsersWithProducts(ctx context.Context, productIDs []string, users []themembers.UserPayload) (map[string]any, error)
}

// AccessMailer sends the post-grant emails.
type AccessMailer interface {
	SendAccessEmail(toEmail, studentName, courseTitle, accessURL, password string) error
	SendExistingUserEmail(toEmail, studentName, courseTitle, accessURL string) error
}

// Service grants membership access after a sale is paid. Granting is
// idempotent per sale via the themembers_access_granted flag, and a
// previously stored password is reused on retry so the student never
// receives two different credentials.
type Service struct {
	db        *gorm.DB
	api       MembershipAPI
	mailer    AccessMailer
	accessURL string
	log       *zap.SugaredLogger
}

func NewService(db *gorm.DB, api MembershipAPI, mailer AccessMailer, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{
		db:        db,
		api:       api,
		mailer:    mailer,
		accessURL: cfg.TheMembers.AccessURL,
		log:       log,
	}
}

// GrantResult reports what the grant call did.
type GrantResult struct {
	Granted    bool
	NewUser    bool
	Password   string
	ProductIDs []string
}

// GrantAccessIfNeeded collects every product id the sale entitles the
// buyer to (its own course plus any cart siblings sharing the same
// gateway payment), creates or links the membership user, and marks
// the sales as granted. Safe to call repeatedly.
func (s *Service) GrantAccessIfNeeded(ctx context.Context, sale *models.Sale) (*GrantResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	productIDs, siblings, err := s.collectProductIDs(ctx, sale)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		log.Warnw("sale has no membership products to grant", "sale_id", sale.ID)
		return &GrantResult{}, nil
	}

	// Already granted for the whole group: nothing to do, and no
	// second email.
	if sale.TheMembersAccessGranted && allGranted(siblings) {
		password := ""
		if sale.TheMembersTempPassword != nil {
			password = *sale.TheMembersTempPassword
		}
		return &GrantResult{Granted: true, Password: password, ProductIDs: productIDs}, nil
	}

	// Reuse a previously generated password so a retried grant sends
	// the same credentials.
	prePassword := ""
	if sale.TheMembersTempPassword != nil {
		prePassword = *sale.TheMembersTempPassword
	}
	password := prePassword
	if password == "" {
		password = tool.GenerateTempPassword(12)
	}

	newUser, finalPassword, err := s.createUser(ctx, sale, productIDs, password)
	if err != nil {
		return nil, err
	}

	if err := s.markGranted(ctx, sale, siblings, finalPassword); err != nil {
		return nil, err
	}

	s.sendEmail(ctx, sale, productIDs, newUser, finalPassword)

	return &GrantResult{
		Granted:    true,
		NewUser:    newUser,
		Password:   finalPassword,
		ProductIDs: productIDs,
	}, nil
}

func allGranted(sales []models.Sale) bool {
	for i := range sales {
		if !sales[i].TheMembersAccessGranted {
			return false
		}
	}
	return true
}

// collectProductIDs unions the sale's course products with every cart
// sibling's, preserving first-seen order.
func (s *Service) collectProductIDs(ctx context.Context, sale *models.Sale) ([]string, []models.Sale, error) {
	var ids []string
	if sale.CourseID != nil {
		courseIDs, err := s.productIDsForCourse(ctx, *sale.CourseID)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, courseIDs...)
	}

	var siblings []models.Sale
	if sale.AsaasPaymentID != nil && *sale.AsaasPaymentID != "" {
		if err := s.db.WithContext(ctx).
			Where("asaas_payment_id = ? AND id <> ?", *sale.AsaasPaymentID, sale.ID).
			Find(&siblings).Error; err != nil {
			return nil, nil, fmt.Errorf("load cart siblings: %w", err)
		}
		for i := range siblings {
			if siblings[i].CourseID == nil {
				continue
			}
			courseIDs, err := s.productIDsForCourse(ctx, *siblings[i].CourseID)
			if err != nil {
				return nil, nil, err
			}
			ids = append(ids, courseIDs...)
		}
	}

	ids = lo.Uniq(lo.Filter(ids, func(id string, _ int) bool { return id != "" }))
	return ids, siblings, nil
}

// productIDsForCourse reads the integration rows for the course,
// falling back to the course's legacy single product id.
func (s *Service) productIDsForCourse(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table((models.TheMembersIntegration{}).TableName()+" AS i").
		Joins("JOIN "+(models.TheMembersProduct{}).TableName()+" AS p ON p.id = i.product_id").
		Where("i.course_id = ?", courseID).
		Order("i.integration_date").
		Pluck("p.product_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load course integrations: %w", err)
	}
	if len(ids) > 0 {
		return ids, nil
	}

	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course.TheMembersProductID != nil && *course.TheMembersProductID != "" {
		return []string{*course.TheMembersProductID}, nil
	}
	return nil, nil
}

// createUser calls the membership platform and resolves the three
// possible outcomes: new user, existing user, or unknown failure
// (assume deleted account and recreate with a fresh password).
func (s *Service) createUser(ctx context.Context, sale *models.Sale, productIDs []string, password string) (newUser bool, finalPassword string, err error) {
	log := logctx.FromCtx(ctx, s.log)

	payload := buildUserPayload(sale, password)
	_, err = s.api.CreateUsersWithProducts(ctx, productIDs, []themembers.UserPayload{payload})

	switch ClassifyCreateError(err) {
	case OutcomeCreated:
		return true, password, nil
	case OutcomeExisting:
		log.Infow("membership user already exists, products linked", "email", sale.Email)
		return false, "", nil
	default:
		log.Warnw("membership create failed, retrying with fresh password", "email", sale.Email, "err", err)
		fresh := tool.GenerateTempPassword(12)
		payload = buildUserPayload(sale, fresh)
		if _, retryErr := s.api.CreateUsersWithProducts(ctx, productIDs, []themembers.UserPayload{payload}); retryErr != nil {
			return false, "", fmt.Errorf("grant membership access: %w", retryErr)
		}
		return true, fresh, nil
	}
}

func buildUserPayload(sale *models.Sale, password string) themembers.UserPayload {
	fullName := strings.TrimSpace(sale.StudentName)
	firstName, lastName := fullName, ""
	if i := strings.Index(fullName, " "); i >= 0 {
		firstName = fullName[:i]
		lastName = fullName[i+1:]
	}
	name := fullName
	if name == "" {
		name = firstName
	}

	document := ""
	if sale.CpfCnpj != nil {
		document = strings.NewReplacer(".", "", "-", "").Replace(*sale.CpfCnpj)
	}
	phone := strings.NewReplacer("(", "", ")", "", " ", "", "-", "").Replace(sale.Phone)

	return themembers.UserPayload{
		Name:          name,
		LastName:      lastName,
		Email:         sale.Email,
		Password:      password,
		Document:      document,
		Phone:         phone,
		ReferenceID:   sale.ID,
		AccessionDate: time.Now().Format(time.DateOnly),
	}
}

// markGranted flags the sale and all cart siblings as granted and
// stores the credential used. Granting implies the charge settled, so
// any sibling still pending is pulled to paid along the way; cancelled
// and refunded sales keep their terminal status.
func (s *Service) markGranted(ctx context.Context, sale *models.Sale, siblings []models.Sale, password string) error {
	updates := map[string]any{
		"themembers_access_granted": true,
	}
	if password != "" {
		updates["themembers_temp_password"] = password
	}

	ids := []string{sale.ID}
	for i := range siblings {
		ids = append(ids, siblings[i].ID)
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id IN ?", ids).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("mark access granted: %w", err)
	}

	terminal := []types.SaleStatus{types.SaleStatusPaid, types.SaleStatusCancelled, types.SaleStatusRefunded}
	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id IN ? AND status NOT IN ?", ids, terminal).
		Update("status", types.SaleStatusPaid).Error; err != nil {
		return fmt.Errorf("mark sales paid: %w", err)
	}

	sale.TheMembersAccessGranted = true
	if sale.Status == types.SaleStatusPending {
		sale.Status = types.SaleStatusPaid
	}
	if password != "" {
		sale.TheMembersTempPassword = &password
	}
	return nil
}

// sendEmail fires the access email without blocking the caller.
func (s *Service) sendEmail(ctx context.Context, sale *models.Sale, productIDs []string, newUser bool, password string) {
	courseTitle := sale.CourseTitle()
	if len(productIDs) > 1 {
		courseTitle = fmt.Sprintf("Combo de %d cursos", len(productIDs))
	}

	log := logctx.FromCtx(ctx, s.log)
	go func() {
		var err error
		if newUser {
			err = s.mailer.SendAccessEmail(sale.Email, sale.StudentName, courseTitle, s.accessURL, password)
		} else {
			err = s.mailer.SendExistingUserEmail(sale.Email, sale.StudentName, courseTitle, s.accessURL)
		}
		if err != nil {
			log.Warnw("access email failed", "sale_id", sale.ID, "err", err)
		}
	}()
}
