package sqlinline

const QListClipsByProject = `--sql f9715b7c-2a56-4fc4-9bc1-82b44002fdbd
select id, project_id, artifact_key, trim_start, trim_end, source_duration, position, edited_key
from clips
where project_id = $1::text
order by position;
`

const QDeleteClipsByProject = `--sql 06da6109-5812-45ea-bc79-8886bef4b49a
delete from clips
where project_id = $1::text;
`

const QInsertClip = `--sql 3b3da6db-3a4b-4cee-b4e9-3cf37c375a13
insert into clips(id, project_id, artifact_key, trim_start, trim_end, source_duration, position, edited_key)
values ($1::uuid, $2::text, $3::text, $4::double precision, $5::double precision, $6::double precision, $7::int, $8::text);
`
