package insights

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"unicode/utf8"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Embedder maps texts to fixed-size vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

const (
	// clusterFloor is the minimum number of qualifying reviews for
	// clustering; below it the engine returns an empty result and the
	// resolver falls back.
	clusterFloor = 5

	// kmeansSeed fixes the partitioning RNG. Repeated runs over identical
	// history must produce identical clusters; the seed is part of the
	// contract.
	kmeansSeed = 42

	maxIterations = 100
	tolerance     = 1e-4
)

// Engine partitions review texts into topic clusters and picks one
// representative review per cluster.
type Engine struct {
	embedder      Embedder
	minTextLength int
}

// NewEngine creates a clustering engine. Reviews whose text is shorter than
// minTextLength runes are excluded as embedding noise.
func NewEngine(embedder Embedder, minTextLength int) *Engine {
	if minTextLength <= 0 {
		minTextLength = 30
	}
	return &Engine{embedder: embedder, minTextLength: minTextLength}
}

// ExtractTopics embeds the qualifying review texts, partitions them into k
// clusters and returns the review nearest each cluster centroid. Fewer
// qualifying reviews than k reduce k; fewer than the hard floor yield an
// empty result. Representatives are unique by construction since cluster
// membership partitions the input.
func (e *Engine) ExtractTopics(ctx context.Context, reviews []models.Review, k int) ([]models.Review, error) {
	qualifying := e.filterQualifying(reviews)
	if len(qualifying) < clusterFloor {
		logrus.Infof("Only %d reviews qualify for clustering (floor %d), skipping", len(qualifying), clusterFloor)
		return nil, nil
	}
	if k > len(qualifying) {
		k = len(qualifying)
	}
	if k < 1 {
		return nil, nil
	}

	texts := make([]string, len(qualifying))
	for i, r := range qualifying {
		texts[i] = r.Text
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed review texts: %w", err)
	}
	if len(vectors) != len(qualifying) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(qualifying))
	}

	dim := len(vectors[0])
	data := mat.NewDense(len(vectors), dim, nil)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("inconsistent embedding dimensions: %d vs %d", len(v), dim)
		}
		data.SetRow(i, v)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	assignments, centroids := kmeans(data, k, rng)

	// Pick the member closest to each centroid, in cluster index order.
	bestIndex := make([]int, k)
	bestSim := make([]float64, k)
	seen := make([]bool, k)

	for i := range qualifying {
		c := assignments[i]
		sim := cosineSimilarity(data.RawRowView(i), centroids.RawRowView(c))
		if !seen[c] || sim > bestSim[c] {
			seen[c] = true
			bestSim[c] = sim
			bestIndex[c] = i
		}
	}

	var representatives []models.Review
	for c := 0; c < k; c++ {
		if seen[c] {
			representatives = append(representatives, qualifying[bestIndex[c]])
		}
	}

	logrus.Infof("Clustered %d reviews into %d topics", len(qualifying), len(representatives))
	return representatives, nil
}

func (e *Engine) filterQualifying(reviews []models.Review) []models.Review {
	var qualifying []models.Review
	for _, r := range reviews {
		if utf8.RuneCountInString(r.Text) >= e.minTextLength {
			qualifying = append(qualifying, r)
		}
	}
	return qualifying
}

// kmeans partitions the rows of data into k clusters using k-means++
// initialization and cosine distance, and returns the final assignments and
// centroids.
func kmeans(data *mat.Dense, k int, rng *rand.Rand) ([]int, *mat.Dense) {
	n, _ := data.Dims()

	centroids := initializeCentroids(data, k, rng)
	assignments := make([]int, n)

	for iteration := 0; iteration < maxIterations; iteration++ {
		newAssignments := assignToClusters(data, centroids)

		converged := true
		for i := range assignments {
			if assignments[i] != newAssignments[i] {
				converged = false
				break
			}
		}
		assignments = newAssignments
		if converged && iteration > 0 {
			break
		}

		newCentroids := updateCentroids(data, assignments, k)
		if centroidChange(centroids, newCentroids) < tolerance {
			centroids = newCentroids
			break
		}
		centroids = newCentroids
	}

	return assignments, centroids
}

// initializeCentroids seeds the centroids with k-means++: the first pick is
// uniform, each further pick is weighted by squared cosine distance to the
// nearest chosen centroid.
func initializeCentroids(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	for i := 1; i < k; i++ {
		distances := make([]float64, n)
		totalWeight := 0.0

		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				dist := 1.0 - cosineSimilarity(point, centroids.RawRowView(c))
				if dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist * minDist
			totalWeight += distances[j]
		}

		if totalWeight == 0 {
			// All points identical; any pick works.
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		cumWeight := 0.0
		for j, dist := range distances {
			cumWeight += dist
			if cumWeight >= target {
				centroids.SetRow(i, data.RawRowView(j))
				break
			}
		}
	}

	return centroids
}

func assignToClusters(data *mat.Dense, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		minDist := math.Inf(1)
		best := 0

		for j := 0; j < k; j++ {
			dist := 1.0 - cosineSimilarity(point, centroids.RawRowView(j))
			if dist < minDist {
				minDist = dist
				best = j
			}
		}
		assignments[i] = best
	}

	return assignments
}

func updateCentroids(data *mat.Dense, assignments []int, k int) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i := 0; i < n; i++ {
		c := assignments[i]
		point := data.RawRowView(i)
		for j := 0; j < d; j++ {
			centroids.Set(c, j, centroids.At(c, j)+point[j])
		}
		counts[c]++
	}

	for i := 0; i < k; i++ {
		if counts[i] > 0 {
			for j := 0; j < d; j++ {
				centroids.Set(i, j, centroids.At(i, j)/float64(counts[i]))
			}
		}
	}

	return centroids
}

func centroidChange(oldCentroids, newCentroids *mat.Dense) float64 {
	k, _ := oldCentroids.Dims()
	totalChange := 0.0
	for i := 0; i < k; i++ {
		totalChange += 1.0 - cosineSimilarity(oldCentroids.RawRowView(i), newCentroids.RawRowView(i))
	}
	return totalChange / float64(k)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	dot, normA, normB := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
