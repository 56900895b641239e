// Package neo4j reads concept knowledge from a Neo4j graph.
package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const (
	minDepth = 1
	maxDepth = 5
)

// related concepts are reached through up to depth RELATED_TO hops; Cypher
// does not accept parameters in variable-length bounds.
const conceptQuery = `
MATCH (c:Concept {name: $concept_name})-[:BELONGS_TO]->(d:Domain {name: $domain})
OPTIONAL MATCH (c)-[:REQUIRES]->(prereq:Prerequisite)
OPTIONAL MATCH (c)-[:EXEMPLIFIED_BY]->(example:Example)
OPTIONAL MATCH (c)-[:RELATED_TO*1..%d]-(related:Concept)
WHERE related <> c
OPTIONAL MATCH (c)-[:PART_OF]->(chapter:Chapter)-[:BELONGS_TO]->(book:Book)
RETURN c AS concept,
       collect(DISTINCT prereq) AS prerequisites,
       collect(DISTINCT example) AS examples,
       collect(DISTINCT related) AS related_concepts,
       collect(DISTINCT {chapter: chapter, book: book}) AS source_content
`

const searchQuery = `
MATCH (c:Concept)-[:BELONGS_TO]->(d:Domain)
WHERE (toLower(c.name) CONTAINS toLower($query)
       OR toLower(coalesce(c.description, '')) CONTAINS toLower($query))
  AND ($domain = '' OR d.name = $domain)
RETURN DISTINCT c AS concept
ORDER BY CASE WHEN toLower(c.name) = toLower($query) THEN 0 ELSE 1 END, c.name
LIMIT $limit
`

// Config holds connection settings
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Graph implements ports.KnowledgeGraph
type Graph struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewGraph connects to Neo4j and verifies connectivity
func NewGraph(ctx context.Context, cfg Config, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.Info("connected to neo4j", zap.String("uri", cfg.URI))

	return &Graph{
		driver:   driver,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

// Fetch retrieves a concept with its prerequisites, examples, related
// concepts and source chapters.
func (g *Graph) Fetch(ctx context.Context, conceptName, domainName string, depth int) (*domain.ConceptContext, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver,
		fmt.Sprintf(conceptQuery, clampDepth(depth)),
		map[string]any{
			"concept_name": conceptName,
			"domain":       domainName,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("concept query failed: %w", err)
	}

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("concept %q in domain %q: %w", conceptName, domainName, domain.ErrNotFound)
	}

	return formatRecord(result.Records[0].AsMap())
}

// Search finds concepts whose name or description contains query
func (g *Graph) Search(ctx context.Context, query, domainName string, limit int) ([]domain.Concept, error) {
	if limit <= 0 {
		limit = 10
	}

	result, err := neo4j.ExecuteQuery(ctx, g.driver, searchQuery,
		map[string]any{
			"query":  query,
			"domain": domainName,
			"limit":  int64(limit),
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("concept search failed: %w", err)
	}

	concepts := make([]domain.Concept, 0, len(result.Records))
	for _, record := range result.Records {
		value, _ := record.Get("concept")
		if node, ok := value.(neo4j.Node); ok {
			concepts = append(concepts, conceptFromProps(node.Props))
		}
	}
	return concepts, nil
}

// Close closes the driver
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func clampDepth(depth int) int {
	if depth < minDepth {
		return minDepth
	}
	if depth > maxDepth {
		return maxDepth
	}
	return depth
}

func formatRecord(values map[string]any) (*domain.ConceptContext, error) {
	node, ok := values["concept"].(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected concept value %T", values["concept"])
	}

	out := &domain.ConceptContext{
		Concept:         conceptFromProps(node.Props),
		Prerequisites:   []domain.Concept{},
		Examples:        []domain.Example{},
		RelatedConcepts: []domain.Concept{},
		SourceContent:   []domain.SourceContent{},
	}

	for _, n := range nodes(values["prerequisites"]) {
		out.Prerequisites = append(out.Prerequisites, conceptFromProps(n.Props))
	}
	for _, n := range nodes(values["examples"]) {
		out.Examples = append(out.Examples, domain.Example{
			Title:   stringProp(n.Props, "title", "name"),
			Content: stringProp(n.Props, "content", "description"),
		})
	}
	for _, n := range nodes(values["related_concepts"]) {
		out.RelatedConcepts = append(out.RelatedConcepts, conceptFromProps(n.Props))
	}

	sources, _ := values["source_content"].([]any)
	for _, s := range sources {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		chapter, ok := m["chapter"].(neo4j.Node)
		if !ok {
			continue
		}
		sc := domain.SourceContent{Chapter: stringProp(chapter.Props, "title", "name")}
		if book, ok := m["book"].(neo4j.Node); ok {
			sc.Book = stringProp(book.Props, "title", "name")
		}
		out.SourceContent = append(out.SourceContent, sc)
	}

	return out, nil
}

func nodes(v any) []neo4j.Node {
	list, _ := v.([]any)
	out := make([]neo4j.Node, 0, len(list))
	for _, item := range list {
		if n, ok := item.(neo4j.Node); ok {
			out = append(out, n)
		}
	}
	return out
}

func conceptFromProps(props map[string]any) domain.Concept {
	c := domain.Concept{
		Name:        stringProp(props, "name"),
		Description: stringProp(props, "description"),
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		if k != "name" && k != "description" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.Properties == nil {
			c.Properties = make(map[string]string, len(keys))
		}
		c.Properties[k] = fmt.Sprint(props[k])
	}
	return c
}

// stringProp returns the first non-empty string property among keys
func stringProp(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
