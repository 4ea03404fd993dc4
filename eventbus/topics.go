package eventbus

// 기능별 기본 토픽 이름을 한 곳에서 관리한다.
var (
	TopicPostEvents       = NewTopic("autoblog.post.events")
	TopicGenerationEvents = NewTopic("autoblog.generation.events")
	TopicDomainEvents     = NewTopic("autoblog.domain.events")
)

var AllTopics = []Topic{
	TopicPostEvents,
	TopicGenerationEvents,
	TopicDomainEvents,
}
