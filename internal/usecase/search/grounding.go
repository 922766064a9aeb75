package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

const groundingBase = `Bạn là trợ lý AI chuyên về địa điểm ăn uống và không gian làm việc tại Việt Nam, đặc biệt phục vụ freelancer và sinh viên.

Nhiệm vụ của bạn:
1. Hiểu rõ nhu cầu của người dùng về địa điểm (cafe, coworking space, nhà hàng, v.v.)
2. Đề xuất các địa điểm phù hợp dựa trên kết quả tìm kiếm bên dưới, không bịa thêm địa điểm
3. Cung cấp thông tin chi tiết: địa chỉ, đánh giá, tiện ích
4. Nếu người dùng hỏi không rõ vị trí cụ thể, hãy hỏi lại để xác định (Hà Nội, TP.HCM, Đà Nẵng, v.v.)
5. Trả lời bằng tiếng Việt, thân thiện và hữu ích
`

// NoLocationNotice tells the model to ask for a city or district instead of guessing.
const NoLocationNotice = "Người dùng chưa cung cấp vị trí. Không được đoán vị trí: " +
	"hãy hỏi người dùng đang ở thành phố hoặc quận/huyện nào trước khi gợi ý địa điểm cụ thể."

// NoResultsNotice tells the model the search came back empty.
const NoResultsNotice = "Không tìm thấy địa điểm phù hợp trong dữ liệu. " +
	"Hãy nói rõ điều này và đề nghị người dùng mô tả thêm nhu cầu hoặc khu vực."

// BuildGroundingContext renders ranked results and the user location into the
// system prompt for the generation call. Output is deterministic for equal input.
func BuildGroundingContext(results []venue.RankedResult, user *geo.Coordinate) string {
	var b strings.Builder
	b.WriteString(groundingBase)
	b.WriteString("\n")

	if user != nil && user.Valid() {
		fmt.Fprintf(&b, "Vị trí người dùng: %s\n", user)
	} else {
		b.WriteString(NoLocationNotice + "\n")
	}

	if len(results) == 0 {
		b.WriteString("\n" + NoResultsNotice + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nCó %d địa điểm phù hợp:\n", len(results))
	for i := range results {
		writeResult(&b, &results[i])
	}
	return b.String()
}

func writeResult(b *strings.Builder, r *venue.RankedResult) {
	fmt.Fprintf(b, "\n%d. **%s**\n", r.Rank, orNA(r.Name))
	fmt.Fprintf(b, "   Loại: %s\n", orNA(r.Type))
	fmt.Fprintf(b, "   Địa chỉ: %s\n", orNA(r.Address))
	if r.Rating != nil {
		fmt.Fprintf(b, "   Rating: %s/5", strconv.FormatFloat(*r.Rating, 'f', -1, 64))
		if r.ReviewCount != nil {
			fmt.Fprintf(b, " (%d đánh giá)", *r.ReviewCount)
		}
		b.WriteString("\n")
	}
	if r.Brand != "" {
		fmt.Fprintf(b, "   Thương hiệu: %s\n", r.Brand)
	}
	if r.Phone != "" {
		fmt.Fprintf(b, "   SĐT: %s\n", r.Phone)
	}
	if r.Coordinate != nil {
		fmt.Fprintf(b, "   Tọa độ: %s\n", r.Coordinate)
	}
	if r.DistanceFromUserKm != nil {
		fmt.Fprintf(b, "   Khoảng cách: %.1f km\n", *r.DistanceFromUserKm)
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
