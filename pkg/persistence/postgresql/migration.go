package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE documents (
				collection VARCHAR(64) NOT NULL,
				id VARCHAR(255) NOT NULL,
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (collection, id)
			);

			CREATE INDEX idx_documents_collection ON documents(collection);
		`,
		2: `
			CREATE INDEX idx_documents_status ON documents(collection, (body->>'status'));
		`,
	}
}
