package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocast/geocast/internal/models"
)

// PostgresCampaignStore implements CampaignStore using PostgreSQL.
type PostgresCampaignStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignStore(pool *pgxpool.Pool) *PostgresCampaignStore {
	return &PostgresCampaignStore{pool: pool}
}

func (s *PostgresCampaignStore) Get(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	var description, imageURL, imageAlt, companyID *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, message, description, image_url, image_alt,
		       targeting_location_id, company_id, status, created_at
		FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Message, &description, &imageURL, &imageAlt,
		&c.TargetingLocationID, &companyID, &c.Status, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "campaign", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	c.Description = deref(description)
	c.ImageURL = deref(imageURL)
	c.ImageAlt = deref(imageAlt)
	c.CompanyID = deref(companyID)

	return &c, nil
}

func (s *PostgresCampaignStore) List(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, message, description, image_url, image_alt,
		       targeting_location_id, company_id, status, created_at
		FROM campaigns ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		var c models.Campaign
		var description, imageURL, imageAlt, companyID *string

		if err := rows.Scan(&c.ID, &c.Name, &c.Message, &description, &imageURL, &imageAlt,
			&c.TargetingLocationID, &companyID, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}

		c.Description = deref(description)
		c.ImageURL = deref(imageURL)
		c.ImageAlt = deref(imageAlt)
		c.CompanyID = deref(companyID)

		campaigns = append(campaigns, &c)
	}

	return campaigns, rows.Err()
}

func (s *PostgresCampaignStore) Create(ctx context.Context, c *models.Campaign) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO campaigns (id, name, message, description, image_url, image_alt,
		                       targeting_location_id, company_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Name, c.Message, nullString(c.Description), nullString(c.ImageURL),
		nullString(c.ImageAlt), c.TargetingLocationID, nullString(c.CompanyID),
		c.Status, c.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (s *PostgresCampaignStore) Update(ctx context.Context, c *models.Campaign) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET
			name = $2, message = $3, description = $4, image_url = $5,
			image_alt = $6, targeting_location_id = $7, status = $8
		WHERE id = $1
	`, c.ID, c.Name, c.Message, nullString(c.Description), nullString(c.ImageURL),
		nullString(c.ImageAlt), c.TargetingLocationID, c.Status)

	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "campaign", ID: c.ID}
	}
	return nil
}

func (s *PostgresCampaignStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "campaign", ID: id}
	}
	return nil
}

func (s *PostgresCampaignStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return n, nil
}

// PostgresCustomerStore implements CustomerStore using PostgreSQL.
type PostgresCustomerStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCustomerStore(pool *pgxpool.Pool) *PostgresCustomerStore {
	return &PostgresCustomerStore{pool: pool}
}

func (s *PostgresCustomerStore) ListAll(ctx context.Context) ([]*models.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, email, region_code, latitude, longitude, created_at
		FROM customers
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		var c models.Customer
		var phone, email, regionCode *string

		if err := rows.Scan(&c.ID, &c.Name, &phone, &email, &regionCode,
			&c.Latitude, &c.Longitude, &c.CreatedAt); err != nil {
			return nil, err
		}

		c.Phone = deref(phone)
		c.Email = deref(email)
		c.RegionCode = deref(regionCode)

		customers = append(customers, &c)
	}

	return customers, rows.Err()
}

func (s *PostgresCustomerStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return n, nil
}

func (s *PostgresCustomerStore) DistributionByRegion(ctx context.Context) ([]RegionCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(region_code, ''), COUNT(*)
		FROM customers
		GROUP BY region_code
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get region distribution: %w", err)
	}
	defer rows.Close()

	var dist []RegionCount
	for rows.Next() {
		var rc RegionCount
		if err := rows.Scan(&rc.RegionCode, &rc.Count); err != nil {
			return nil, err
		}
		dist = append(dist, rc)
	}

	return dist, rows.Err()
}

// PostgresDeliveryStore implements DeliveryStore using PostgreSQL.
type PostgresDeliveryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresDeliveryStore(pool *pgxpool.Pool) *PostgresDeliveryStore {
	return &PostgresDeliveryStore{pool: pool}
}

func (s *PostgresDeliveryStore) Append(ctx context.Context, d *models.Delivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deliveries (id, campaign_id, customer_id, status, sent_at, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, d.ID, d.CampaignID, d.CustomerID, d.Status, d.SentAt, nullString(d.ErrorMessage), d.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append delivery: %w", err)
	}
	return nil
}

func (s *PostgresDeliveryStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM deliveries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return n, nil
}

func (s *PostgresDeliveryStore) CountByCampaign(ctx context.Context, campaignID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE campaign_id = $1`, campaignID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return n, nil
}

func (s *PostgresDeliveryStore) CountSuccessfulByCampaign(ctx context.Context, campaignID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE campaign_id = $1 AND status = $2`,
		campaignID, models.DeliveryStatusSent).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count successful deliveries: %w", err)
	}
	return n, nil
}

func (s *PostgresDeliveryStore) CountByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries by status: %w", err)
	}
	return n, nil
}

func (s *PostgresDeliveryStore) CountDistinctCustomersByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT customer_id) FROM deliveries WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct customers: %w", err)
	}
	return n, nil
}

func (s *PostgresDeliveryStore) HourlyCountsByDate(ctx context.Context, day time.Time) ([]HourCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM sent_at)::int AS hour, COUNT(*)
		FROM deliveries
		WHERE sent_at >= $1 AND sent_at < $2
		GROUP BY hour
		ORDER BY hour
	`, startOfDay(day), startOfDay(day).Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly counts: %w", err)
	}
	defer rows.Close()

	var counts []HourCount
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, hc)
	}

	return counts, rows.Err()
}

// PostgresTargetingLocationStore implements TargetingLocationStore using PostgreSQL.
type PostgresTargetingLocationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTargetingLocationStore(pool *pgxpool.Pool) *PostgresTargetingLocationStore {
	return &PostgresTargetingLocationStore{pool: pool}
}

func (s *PostgresTargetingLocationStore) Get(ctx context.Context, id string) (*models.TargetingLocation, error) {
	var l models.TargetingLocation
	var companyID *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, name, latitude, longitude, radius_m, created_at
		FROM targeting_locations WHERE id = $1
	`, id).Scan(&l.ID, &companyID, &l.Name, &l.Latitude, &l.Longitude, &l.RadiusM, &l.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "targeting location", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get targeting location: %w", err)
	}

	l.CompanyID = deref(companyID)

	return &l, nil
}

func (s *PostgresTargetingLocationStore) List(ctx context.Context) ([]*models.TargetingLocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, latitude, longitude, radius_m, created_at
		FROM targeting_locations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targeting locations: %w", err)
	}
	defer rows.Close()

	var locations []*models.TargetingLocation
	for rows.Next() {
		var l models.TargetingLocation
		var companyID *string

		if err := rows.Scan(&l.ID, &companyID, &l.Name, &l.Latitude, &l.Longitude,
			&l.RadiusM, &l.CreatedAt); err != nil {
			return nil, err
		}

		l.CompanyID = deref(companyID)

		locations = append(locations, &l)
	}

	return locations, rows.Err()
}

func (s *PostgresTargetingLocationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM targeting_locations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count targeting locations: %w", err)
	}
	return n, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
