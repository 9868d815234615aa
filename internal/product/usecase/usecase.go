package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/model"
	"github.com/greenlot/menu-order-service/internal/platform/cache"
	"github.com/greenlot/menu-order-service/internal/platform/search"
	"github.com/greenlot/menu-order-service/internal/product"
	"github.com/greenlot/menu-order-service/internal/product/dto"
)

const productsIndex = "products"

type productUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	es     *search.Client
	logger *zap.Logger
}

func NewProductUseCase(repo product.Repository, cache *cache.RedisClient, es *search.Client, log *zap.Logger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	unique, err := uc.repo.IsSKUUnique(ctx, input.MerchantID, input.SKU, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, apperr.New(apperr.CodeStateConflict, "SKU already exists")
	}

	id := uuid.New().String()
	now := time.Now()

	var strain *string
	if input.StrainType != "" {
		strain = &input.StrainType
	}
	var thc *float64
	if input.ThcPercent > 0 {
		thc = &input.ThcPercent
	}

	p := &model.Product{
		BaseModel:     model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		MerchantID:    input.MerchantID,
		SKU:           input.SKU,
		Name:          input.Name,
		Description:   &input.Description,
		StrainType:    strain,
		ThcPercent:    thc,
		PricePerPound: input.PricePerPound,
		ImageURL:      &input.ImageURL,
		IsActive:      true,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateProductCache(context.Background(), input.MerchantID)
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}

	mapping := `{
		"mappings": {
			"properties": {
				"merchant_id": { "type": "keyword" },
				"name": { "type": "text" },
				"description": { "type": "text" },
				"sku": { "type": "keyword" },
				"strain_type": { "type": "keyword" },
				"price_per_pound": { "type": "double" },
				"created_at": { "type": "date" }
			}
		}
	}`
	if err := uc.es.CreateIndex(ctx, productsIndex, mapping); err != nil {
		uc.logger.Warn("failed to ensure product index", zap.Error(err))
	}

	if err := uc.es.Index(ctx, productsIndex, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.Error(err))
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.CodeNotFound, "product not found")
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Get(ctx, cacheKey)
		if err == nil {
			var result struct {
				Products []model.Product
				Count    int
			}
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	// Full-text search goes to Elastic when available, with DB fallback.
	if filters.SearchQuery != "" && uc.es != nil {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		q := map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []map[string]interface{}{
						{
							"query_string": map[string]interface{}{
								"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
								"fields": []string{"name^3", "sku", "description"},
							},
						},
						{
							"term": map[string]interface{}{
								"merchant_id": filters.MerchantID,
							},
						},
					},
				},
			},
			"from": (page - 1) * filters.PageSize,
		}
		if filters.PageSize > 0 {
			q["size"] = filters.PageSize
		}

		res, err := uc.es.Search(ctx, productsIndex, q)
		if err == nil {
			var esProducts []model.Product
			for _, hit := range res.Hits.Hits {
				var p model.Product
				if err := json.Unmarshal(hit.Source, &p); err == nil {
					esProducts = append(esProducts, p)
				}
			}
			return esProducts, res.Hits.Total.Value, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		cacheData := struct {
			Products []model.Product
			Count    int
		}{
			Products: products,
			Count:    count,
		}
		if data, err := json.Marshal(cacheData); err == nil {
			uc.cache.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	return products, count, nil
}

func (uc *productUseCase) generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%s:%x", filters.MerchantID, md5.Sum(data)), nil
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context, merchantID string) {
	if uc.cache == nil {
		return
	}
	pattern := fmt.Sprintf("products:list:%s:*", merchantID)
	keys, err := uc.cache.Client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		uc.cache.Del(ctx, keys...)
	}
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.MerchantID != input.MerchantID {
		return nil, apperr.New(apperr.CodeNotFound, "product not found")
	}

	if p.SKU != input.SKU {
		unique, err := uc.repo.IsSKUUnique(ctx, input.MerchantID, input.SKU, p.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, apperr.New(apperr.CodeStateConflict, "SKU already exists")
		}
	}

	p.SKU = input.SKU
	p.Name = input.Name
	p.Description = &input.Description
	p.PricePerPound = input.PricePerPound
	p.ImageURL = &input.ImageURL
	p.IsActive = input.IsActive
	if input.StrainType != "" {
		st := input.StrainType
		p.StrainType = &st
	} else {
		p.StrainType = nil
	}
	if input.ThcPercent > 0 {
		thc := input.ThcPercent
		p.ThcPercent = &thc
	} else {
		p.ThcPercent = nil
	}
	p.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateProductCache(context.Background(), p.MerchantID)
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return nil // Already deleted
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	go uc.invalidateProductCache(context.Background(), p.MerchantID)
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), productsIndex, id); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}

	return nil
}
