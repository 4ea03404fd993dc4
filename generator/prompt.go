package generator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"autoblog/models"
)

const recentContentPrefix = 200

// PromptContext 는 사용자 프롬프트에 들어가는 주제 외 정보다.
type PromptContext struct {
	RecentPosts []models.Post
	References  []Reference
	MinWords    int
	MaxWords    int
	Language    string
}

func isChinese(lang string) bool {
	return lang == "" || strings.HasPrefix(strings.ToLower(lang), "zh")
}

// SystemPrompt 는 글자 수 범위와 SEO 작가 역할을 명시한다.
func SystemPrompt(topicName string, pc PromptContext) string {
	if isChinese(pc.Language) {
		return fmt.Sprintf(`你是一个专业的博客内容创作者，专注于创建高质量的SEO友好内容。
你需要为主题"%s"创建一篇原创博客文章。
文章应该包含%d-%d字，并且对搜索引擎友好。
请确保内容是原创的，信息丰富的，并且对读者有价值。
请使用Markdown格式。`, topicName, pc.MinWords, pc.MaxWords)
	}
	return fmt.Sprintf(`You are a professional blog writer who produces high quality, SEO-friendly content.
Write an original blog article for the topic "%s".
The article must be %d-%d words long and easy for search engines to index.
Make it original, informative and valuable to readers.
Use Markdown.`, topicName, pc.MinWords, pc.MaxWords)
}

// UserPrompt 는 주제 정보, 중복 회피 목록, 참고 자료, 구조 지시를 조합한다.
func UserPrompt(topic *models.Topic, pc PromptContext) string {
	zh := isChinese(pc.Language)
	var b strings.Builder

	if topic.PromptTemplate != "" {
		b.WriteString(ApplyTemplate(topic.PromptTemplate, topic))
		b.WriteString("\n\n")
	} else if zh {
		fmt.Fprintf(&b, "请为主题\"%s\"创建一篇原创博客文章。\n\n", topic.Name)
	} else {
		fmt.Fprintf(&b, "Write an original blog article about \"%s\".\n\n", topic.Name)
	}

	section := func(zhLabel, enLabel, value string) {
		if value == "" {
			return
		}
		if zh {
			fmt.Fprintf(&b, "%s: %s\n\n", zhLabel, value)
		} else {
			fmt.Fprintf(&b, "%s: %s\n\n", enLabel, value)
		}
	}
	section("主题描述", "Topic description", topic.Description)
	section("请在文章中自然地包含以下关键词", "Naturally include these keywords", strings.Join(topic.Keywords, ", "))
	section("文章分类", "Categories", strings.Join(topic.Categories, ", "))

	if len(pc.RecentPosts) > 0 {
		titles := make([]string, 0, len(pc.RecentPosts))
		prefixes := make([]string, 0, len(pc.RecentPosts))
		for _, p := range pc.RecentPosts {
			titles = append(titles, p.Title)
			prefixes = append(prefixes, runePrefix(p.Content, recentContentPrefix))
		}
		if zh {
			fmt.Fprintf(&b, "请避免创建与以下标题相似的内容:\n%s\n\n", strings.Join(titles, "\n"))
			fmt.Fprintf(&b, "请避免与以下内容重复:\n%s\n\n", strings.Join(prefixes, "\n---\n"))
		} else {
			fmt.Fprintf(&b, "Avoid titles similar to:\n%s\n\n", strings.Join(titles, "\n"))
			fmt.Fprintf(&b, "Avoid repeating this content:\n%s\n\n", strings.Join(prefixes, "\n---\n"))
		}
	}

	if len(pc.References) > 0 {
		if zh {
			b.WriteString("可参考以下最新资料（请用自己的话重新组织，不要照抄）:\n")
		} else {
			b.WriteString("Recent reference material (rephrase, do not copy):\n")
		}
		for _, ref := range pc.References {
			fmt.Fprintf(&b, "- %s", ref.Title)
			if ref.URL != "" {
				fmt.Fprintf(&b, " (%s)", ref.URL)
			}
			b.WriteString("\n")
			if ref.Text != "" {
				b.WriteString("  ")
				b.WriteString(strings.ReplaceAll(ref.Text, "\n", " "))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	if zh {
		fmt.Fprintf(&b, `请按以下格式创建文章:
1. 以Markdown格式的一级标题(#)开始，作为文章标题
2. 添加一个简短的引言段落
3. 使用二级标题(##)组织文章的主要部分
4. 在适当的地方使用三级标题(###)
5. 在文章末尾添加一个总结或结论部分
6. 文章应该包含%d-%d字

请确保内容是原创的、信息丰富的，并且对读者有价值。`, pc.MinWords, pc.MaxWords)
	} else {
		fmt.Fprintf(&b, `Structure the article as follows:
1. Start with a single level-1 Markdown heading (#) as the title
2. Add a short introduction paragraph
3. Organize the main parts with level-2 headings (##)
4. Use level-3 headings (###) where appropriate
5. Finish with a summary or conclusion section
6. The article must be %d-%d words long

Make sure the content is original, informative and valuable to readers.`, pc.MinWords, pc.MaxWords)
	}
	return b.String()
}

// ApplyTemplate 은 {{topic}}, {{description}}, {{keywords}}, {{categories}} 를 치환한다.
func ApplyTemplate(tpl string, topic *models.Topic) string {
	r := strings.NewReplacer(
		"{{topic}}", topic.Name,
		"{{description}}", topic.Description,
		"{{keywords}}", strings.Join(topic.Keywords, ", "),
		"{{categories}}", strings.Join(topic.Categories, ", "),
	)
	return r.Replace(tpl)
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
